package contract

import (
	"errors"
	"strings"
	"testing"

	"github.com/achuajays/schemasentry/model"
)

const ordersSpec = `
openapi: "3.0.0"
info:
  title: Orders API
  version: "1.0.0"
paths:
  /orders:
    get:
      summary: List orders
      responses:
        "200":
          description: OK
          content:
            application/json:
              schema:
                type: object
                required: ["id", "total"]
                properties:
                  id:
                    type: string
                    format: uuid
                  total:
                    type: number
                  note:
                    type: string
                    nullable: true
                  customer:
                    type: object
                    properties:
                      email:
                        type: string
                        format: email
                  items:
                    type: array
                    items:
                      type: object
                      properties:
                        sku:
                          type: string
        "404":
          description: Not found
    post:
      summary: Create order
      responses:
        "201":
          description: Created
          content:
            application/json:
              schema:
                type: object
                properties:
                  id:
                    type: string
`

func parse(t *testing.T, spec string) *Document {
	t.Helper()
	doc, err := New(Config{}).Parse([]byte(spec))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func TestParseOpenAPI3(t *testing.T) {
	doc := parse(t, ordersSpec)
	if doc.Version != "3.0.0" {
		t.Errorf("Version = %q", doc.Version)
	}
	if len(doc.Endpoints) != 2 {
		t.Fatalf("parsed %d endpoints, want 2", len(doc.Endpoints))
	}

	ep, ok := doc.EndpointFor("/orders", "GET")
	if !ok {
		t.Fatalf("GET /orders not found")
	}
	if ep.Summary != "List orders" {
		t.Errorf("Summary = %q", ep.Summary)
	}
	if len(ep.StatusCodes) != 2 || ep.StatusCodes[0] != 200 || ep.StatusCodes[1] != 404 {
		t.Errorf("StatusCodes = %v, want [200 404]", ep.StatusCodes)
	}

	tests := []struct {
		path     string
		typ      model.FieldType
		required bool
		nullable bool
		format   string
	}{
		{"id", model.TypeString, true, false, "uuid"},
		{"total", model.TypeNumber, true, false, ""},
		{"note", model.TypeString, false, true, ""},
		{"customer", model.TypeObject, false, false, ""},
		{"customer.email", model.TypeString, false, false, "email"},
		{"items", model.TypeArray, false, false, ""},
		{"items[].sku", model.TypeString, false, false, ""},
	}
	for _, tt := range tests {
		field, ok := ep.Fields[tt.path]
		if !ok {
			t.Errorf("field %q missing", tt.path)
			continue
		}
		if field.Type != tt.typ || field.Required != tt.required || field.Nullable != tt.nullable || field.Format != tt.format {
			t.Errorf("field %q = %+v", tt.path, field)
		}
	}
}

func TestParsePrefers201WhenNo200(t *testing.T) {
	doc := parse(t, ordersSpec)
	ep, ok := doc.EndpointFor("/orders", "POST")
	if !ok {
		t.Fatalf("POST /orders not found")
	}
	if _, ok := ep.Fields["id"]; !ok {
		t.Errorf("201 response schema not used, fields = %v", ep.Fields)
	}
}

func TestParseSwagger2(t *testing.T) {
	const spec = `
swagger: "2.0"
info:
  title: Legacy API
  version: "1.0"
paths:
  /users:
    get:
      produces:
        - application/json
      responses:
        "200":
          description: OK
          schema:
            type: object
            required: ["name"]
            properties:
              name:
                type: string
              age:
                type: integer
`
	doc := parse(t, spec)
	if doc.Version != "2.0" {
		t.Errorf("Version = %q", doc.Version)
	}
	ep, ok := doc.EndpointFor("/users", "GET")
	if !ok {
		t.Fatalf("GET /users not found")
	}
	name := ep.Fields["name"]
	if name.Type != model.TypeString || !name.Required {
		t.Errorf("name = %+v", name)
	}
	if got := ep.Fields["age"].Type; got != model.TypeInteger {
		t.Errorf("age type = %s", got)
	}
}

func TestParseJSONInput(t *testing.T) {
	const spec = `{"openapi": "3.0.0", "info": {"title": "T", "version": "1"}, "paths": {
		"/ping": {"get": {"responses": {"200": {"description": "OK"}}}}}}`
	doc := parse(t, spec)
	if _, ok := doc.EndpointFor("/ping", "GET"); !ok {
		t.Errorf("GET /ping not found")
	}
}

func TestParseExternalRefWarns(t *testing.T) {
	const spec = `
openapi: "3.0.0"
info:
  title: Refs API
  version: "1.0"
paths:
  /things:
    get:
      responses:
        "200":
          description: OK
          content:
            application/json:
              schema:
                $ref: "common.yaml#/Thing"
`
	doc := parse(t, spec)
	if len(doc.Warnings) == 0 {
		t.Fatalf("external $ref produced no warning")
	}
	if !strings.Contains(doc.Warnings[0].Ref, "common.yaml") {
		t.Errorf("warning = %+v", doc.Warnings[0])
	}
	ep, ok := doc.EndpointFor("/things", "GET")
	if !ok {
		t.Fatalf("GET /things not found")
	}
	if len(ep.Fields) != 0 {
		t.Errorf("external ref should flatten to no fields, got %v", ep.Fields)
	}
}

func TestParseInternalRefResolves(t *testing.T) {
	const spec = `
openapi: "3.0.0"
info:
  title: Refs API
  version: "1.0"
components:
  schemas:
    User:
      type: object
      required: ["id"]
      properties:
        id:
          type: integer
paths:
  /users:
    get:
      responses:
        "200":
          description: OK
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/User"
`
	doc := parse(t, spec)
	if len(doc.Warnings) != 0 {
		t.Errorf("internal ref raised warnings: %v", doc.Warnings)
	}
	ep, _ := doc.EndpointFor("/users", "GET")
	if ep == nil {
		t.Fatalf("GET /users not found")
	}
	id := ep.Fields["id"]
	if id.Type != model.TypeInteger || !id.Required {
		t.Errorf("id = %+v", id)
	}
}

func TestParseInvalidDocument(t *testing.T) {
	for _, spec := range []string{"", "[1, 2, 3", "just words\n\tand: [unbalanced"} {
		_, err := New(Config{}).Parse([]byte(spec))
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error", spec)
			continue
		}
		var parseErr *model.SpecParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("Parse(%q) error type = %T", spec, err)
		}
	}
}

func TestFlattenDepthGuard(t *testing.T) {
	var b strings.Builder
	b.WriteString(`
openapi: "3.0.0"
info:
  title: Deep API
  version: "1.0"
paths:
  /deep:
    get:
      responses:
        "200":
          description: OK
          content:
            application/json:
              schema:
`)
	indent := "                "
	for i := 0; i < 8; i++ {
		b.WriteString(indent + "type: object\n")
		b.WriteString(indent + "properties:\n")
		b.WriteString(indent + "  level:\n")
		indent += "    "
	}
	b.WriteString(indent + "type: string\n")

	doc, err := New(Config{MaxDepth: 3}).Parse([]byte(b.String()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	hit := false
	for _, w := range doc.Warnings {
		if strings.Contains(w.Reason, "cut off") {
			hit = true
		}
	}
	if !hit {
		t.Errorf("depth guard raised no warning, warnings = %v", doc.Warnings)
	}
	ep, _ := doc.EndpointFor("/deep", "GET")
	if ep == nil {
		t.Fatalf("GET /deep not found")
	}
	if _, ok := ep.Fields["level.level.level.level.level"]; ok {
		t.Errorf("field below depth limit was flattened")
	}
}
