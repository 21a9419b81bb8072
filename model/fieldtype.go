package model

// FieldType is a deterministic type tag inferred from a JSON value's shape.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
	TypeNull    FieldType = "null"
	// TypeMixed marks a field observed with more than one distinct type.
	TypeMixed   FieldType = "mixed"
	TypeUnknown FieldType = "unknown"
)

// CompatibleWith reports whether an observed type satisfies a declared type.
// Integer and number are mutually compatible; everything else requires an
// exact match.
func (t FieldType) CompatibleWith(declared FieldType) bool {
	if t == declared {
		return true
	}
	switch declared {
	case TypeInteger, TypeNumber:
		return t == TypeInteger || t == TypeNumber
	}
	return false
}
