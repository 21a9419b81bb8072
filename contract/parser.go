package contract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-yaml"

	"github.com/achuajays/schemasentry/model"
)

// DefaultMaxDepth bounds schema flattening, guarding against cyclic $ref
// chains and pathologically deep schemas.
const DefaultMaxDepth = 50

// recognizedMethods are the HTTP verbs extracted from a declared document.
var recognizedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// preferredStatuses are checked in order when selecting the response schema
// for an endpoint.
var preferredStatuses = []string{"200", "201"}

// Config holds parser options.
type Config struct {
	// MaxDepth bounds flattening recursion. Zero means DefaultMaxDepth.
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
}

// Parser parses interface specifications into flattened Documents.
type Parser struct {
	maxDepth int
}

// New creates a Parser from config, applying defaults for zero values.
func New(cfg Config) *Parser {
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Parser{maxDepth: maxDepth}
}

// Parse parses an OpenAPI 2.x or 3.x document given as YAML or JSON text.
// A structurally invalid document fails with a *model.SpecParseError.
// External $refs are resolved to empty field sets and reported as warnings;
// they never fail the parse.
func (p *Parser) Parse(specText []byte) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(specText, &raw); err != nil {
		return nil, model.NewSpecParseError("invalid YAML/JSON document", err)
	}
	if len(raw) == 0 {
		return nil, model.NewSpecParseError("empty document", nil)
	}

	warnings := scrubExternalRefs(raw)

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, model.NewSpecParseError("document not JSON-serializable", err)
	}

	version := "unknown"
	var doc *openapi3.T
	switch {
	case raw["swagger"] != nil:
		version = fmt.Sprint(raw["swagger"])
		var doc2 openapi2.T
		if err := json.Unmarshal(data, &doc2); err != nil {
			return nil, model.NewSpecParseError("invalid Swagger 2.x document", err)
		}
		doc, err = openapi2conv.ToV3(&doc2)
		if err != nil {
			return nil, model.NewSpecParseError("Swagger 2.x conversion failed", err)
		}
		loader := openapi3.NewLoader()
		if err := loader.ResolveRefsIn(doc, nil); err != nil {
			return nil, model.NewSpecParseError("reference resolution failed", err)
		}
	default:
		if raw["openapi"] != nil {
			version = fmt.Sprint(raw["openapi"])
		}
		loader := openapi3.NewLoader()
		doc, err = loader.LoadFromData(data)
		if err != nil {
			return nil, model.NewSpecParseError("invalid OpenAPI 3.x document", err)
		}
	}

	out := &Document{Version: version, Warnings: warnings}
	if doc.Paths == nil {
		return out, nil
	}

	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if !recognizedMethods[method] || op == nil {
				continue
			}
			ep := Endpoint{
				Path:        path,
				Method:      method,
				Summary:     op.Summary,
				Fields:      map[string]model.ContractField{},
				StatusCodes: declaredStatusCodes(op),
			}
			if schema := responseSchema(op); schema != nil {
				fields, flattenWarnings := p.Flatten(schema)
				ep.Fields = fields
				out.Warnings = append(out.Warnings, flattenWarnings...)
			}
			out.Endpoints = append(out.Endpoints, ep)
		}
	}
	sortEndpoints(out.Endpoints)
	return out, nil
}

// responseSchema selects the JSON response schema for an operation,
// preferring status 200 then 201.
func responseSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.Responses == nil {
		return nil
	}
	for _, status := range preferredStatuses {
		ref := op.Responses.Value(status)
		if ref == nil || ref.Value == nil {
			continue
		}
		mt := ref.Value.Content.Get("application/json")
		if mt == nil || mt.Schema == nil || mt.Schema.Value == nil {
			continue
		}
		return mt.Schema.Value
	}
	return nil
}

// declaredStatusCodes lists the numeric status codes declared for an
// operation, sorted ascending. Non-numeric keys such as "default" are
// skipped.
func declaredStatusCodes(op *openapi3.Operation) []int {
	if op.Responses == nil {
		return nil
	}
	var codes []int
	for status := range op.Responses.Map() {
		if code, err := strconv.Atoi(status); err == nil {
			codes = append(codes, code)
		}
	}
	sort.Ints(codes)
	return codes
}

// scrubExternalRefs walks the raw document tree and replaces every $ref
// that does not point inside the document (#/...) with an empty schema,
// recording one warning per reference.
func scrubExternalRefs(v any) []model.UnresolvedReference {
	var warnings []model.UnresolvedReference
	switch val := v.(type) {
	case map[string]any:
		if ref, ok := val["$ref"].(string); ok && !strings.HasPrefix(ref, "#/") {
			warnings = append(warnings, model.UnresolvedReference{
				Ref:    ref,
				Reason: "external reference, resolved to empty schema",
			})
			for key := range val {
				delete(val, key)
			}
			return warnings
		}
		for _, value := range val {
			warnings = append(warnings, scrubExternalRefs(value)...)
		}
	case []any:
		for _, item := range val {
			warnings = append(warnings, scrubExternalRefs(item)...)
		}
	}
	return warnings
}
