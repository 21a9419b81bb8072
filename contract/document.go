// Package contract parses declared interface specifications (OpenAPI 2.x
// and 3.x, YAML or JSON) and flattens them into path-keyed field descriptor
// maps directly comparable with observed schemas.
package contract

import (
	"sort"

	"github.com/achuajays/schemasentry/model"
)

// Endpoint is one declared path/verb pair with its flattened response
// fields.
type Endpoint struct {
	Path        string                         `json:"path"`
	Method      string                         `json:"method"`
	Summary     string                         `json:"summary,omitempty"`
	Fields      map[string]model.ContractField `json:"response_fields"`
	StatusCodes []int                          `json:"status_codes,omitempty"`
}

// Document is a parsed and flattened interface specification.
type Document struct {
	Version   string                      `json:"version"`
	Endpoints []Endpoint                  `json:"endpoints"`
	Warnings  []model.UnresolvedReference `json:"warnings,omitempty"`
}

// FieldsFor returns the flattened declared fields for an endpoint/method
// pair. The second return is false when the pair is not declared at all.
func (d *Document) FieldsFor(endpoint, method string) (map[string]model.ContractField, bool) {
	for i := range d.Endpoints {
		if d.Endpoints[i].Path == endpoint && d.Endpoints[i].Method == method {
			return d.Endpoints[i].Fields, true
		}
	}
	return nil, false
}

// EndpointFor returns the declared endpoint for a path/method pair.
func (d *Document) EndpointFor(endpoint, method string) (*Endpoint, bool) {
	for i := range d.Endpoints {
		if d.Endpoints[i].Path == endpoint && d.Endpoints[i].Method == method {
			return &d.Endpoints[i], true
		}
	}
	return nil, false
}

func sortEndpoints(endpoints []Endpoint) {
	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].Path != endpoints[j].Path {
			return endpoints[i].Path < endpoints[j].Path
		}
		return endpoints[i].Method < endpoints[j].Method
	})
}
