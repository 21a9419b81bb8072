package contract

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/achuajays/schemasentry/model"
)

// Flatten flattens a response schema into a map of dotted field paths to
// declared field descriptors. Object properties extend the path with ".",
// array item schemas of type object with "[]". Recursion stops at the
// parser's depth bound and on schema cycles; each cutoff is reported as a
// warning.
func (p *Parser) Flatten(schema *openapi3.Schema) (map[string]model.ContractField, []model.UnresolvedReference) {
	fields := make(map[string]model.ContractField)
	var warnings []model.UnresolvedReference
	p.flattenInto(schema, "", 0, fields, make(map[*openapi3.Schema]bool), &warnings)
	return fields, warnings
}

func (p *Parser) flattenInto(schema *openapi3.Schema, prefix string, depth int, fields map[string]model.ContractField, visited map[*openapi3.Schema]bool, warnings *[]model.UnresolvedReference) {
	if schema == nil {
		return
	}
	if depth >= p.maxDepth || visited[schema] {
		*warnings = append(*warnings, model.UnresolvedReference{
			Ref:    prefix,
			Reason: "schema nesting cut off (cycle or depth limit)",
		})
		return
	}
	visited[schema] = true
	defer delete(visited, schema)

	switch schemaType(schema) {
	case model.TypeObject, model.TypeUnknown:
		required := make(map[string]bool, len(schema.Required))
		for _, name := range schema.Required {
			required[name] = true
		}
		for name, ref := range schema.Properties {
			prop := ref.Value
			if prop == nil {
				continue
			}
			path := name
			if prefix != "" {
				path = prefix + "." + name
			}
			propType := schemaType(prop)
			fields[path] = model.ContractField{
				Path:     path,
				Type:     propType,
				Required: required[name],
				Nullable: isNullable(prop),
				Format:   prop.Format,
			}
			switch propType {
			case model.TypeObject:
				p.flattenInto(prop, path, depth+1, fields, visited, warnings)
			case model.TypeUnknown:
				if len(prop.Properties) > 0 {
					p.flattenInto(prop, path, depth+1, fields, visited, warnings)
				}
			case model.TypeArray:
				if prop.Items != nil && prop.Items.Value != nil && schemaType(prop.Items.Value) == model.TypeObject {
					p.flattenInto(prop.Items.Value, path+"[]", depth+1, fields, visited, warnings)
				}
			}
		}
	case model.TypeArray:
		if schema.Items != nil && schema.Items.Value != nil {
			p.flattenInto(schema.Items.Value, prefix+"[]", depth+1, fields, visited, warnings)
		}
	}
}

// schemaType maps an OpenAPI type to the engine's field type tag. A schema
// without an explicit type is treated as unknown (and unknown-typed declared
// fields are compatible with anything during comparison).
func schemaType(schema *openapi3.Schema) model.FieldType {
	if schema.Type == nil {
		return model.TypeUnknown
	}
	for _, t := range schema.Type.Slice() {
		switch t {
		case "string":
			return model.TypeString
		case "integer":
			return model.TypeInteger
		case "number":
			return model.TypeNumber
		case "boolean":
			return model.TypeBoolean
		case "object":
			return model.TypeObject
		case "array":
			return model.TypeArray
		case "null":
			continue
		}
	}
	return model.TypeUnknown
}

// isNullable honors both the 3.0 nullable flag and a "null" entry in a 3.1
// type array.
func isNullable(schema *openapi3.Schema) bool {
	if schema.Nullable {
		return true
	}
	if schema.Type == nil {
		return false
	}
	for _, t := range schema.Type.Slice() {
		if t == "null" {
			return true
		}
	}
	return false
}
