package model

import "time"

// TrafficRecord is a single captured API request/response pair. Records are
// immutable once sampled; bodies hold JSON-decoded values (map[string]any,
// []any, float64, string, bool or nil).
type TrafficRecord struct {
	Endpoint     string            `json:"endpoint"`
	Method       string            `json:"method"`
	StatusCode   int               `json:"status_code"`
	RequestBody  any               `json:"request_body,omitempty"`
	ResponseBody any               `json:"response_body,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	ClientID     string            `json:"client_id,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// FieldInfo describes a single field path as measured from traffic.
type FieldInfo struct {
	Path string    `json:"path"`
	Type FieldType `json:"type"`
	// Nullable is set when at least one null occurrence was observed.
	Nullable bool `json:"nullable"`
	// PresenceRate is occurrences / total valid samples in the batch, in [0,1].
	PresenceRate float64 `json:"presence_rate"`
	SampleValues []any   `json:"sample_values,omitempty"`
}

// ObservedSchema is the shape of an endpoint's responses as measured from a
// batch of samples. Built fresh per (endpoint, method, batch) and never
// mutated afterwards.
type ObservedSchema struct {
	Endpoint    string               `json:"endpoint"`
	Method      string               `json:"method"`
	Fields      map[string]FieldInfo `json:"fields"`
	SampleCount int                  `json:"sample_count"`
	StatusCodes []int                `json:"status_codes_observed,omitempty"`
	WindowStart time.Time            `json:"window_start"`
	WindowEnd   time.Time            `json:"window_end"`
	// Truncated is set when the recursion depth guard cut off part of a payload.
	Truncated bool `json:"truncated,omitempty"`
}

// ContractField is a single declared field flattened out of an interface
// specification, keyed by the same path notation as FieldInfo.
type ContractField struct {
	Path     string    `json:"path"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Nullable bool      `json:"nullable"`
	Format   string    `json:"format,omitempty"`
}

// UsageLog is a single client usage log entry, the input shape for impact
// analysis.
type UsageLog struct {
	ClientID  string            `json:"client_id,omitempty"`
	Endpoint  string            `json:"endpoint"`
	Method    string            `json:"method,omitempty"`
	Count     int               `json:"count,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// ClientUsage aggregates one client's usage of an endpoint.
type ClientUsage struct {
	ClientID      string     `json:"client_id"`
	ClientName    string     `json:"client_name,omitempty"`
	EndpointsUsed []string   `json:"endpoints_used"`
	MethodsUsed   []string   `json:"methods_used,omitempty"`
	RequestCount  int        `json:"request_count"`
	LastSeen      *time.Time `json:"last_seen,omitempty"`
}

// ScoredClient is a client ranked by how costly an outage would be for it.
type ScoredClient struct {
	ClientID      string   `json:"client_id"`
	PriorityScore int      `json:"priority_score"`
	RequestCount  int      `json:"request_count"`
	EndpointsUsed []string `json:"endpoints_used,omitempty"`
	Critical      bool     `json:"is_critical"`
	Reasons       []string `json:"reasons,omitempty"`
}

// ImpactAssessment answers "who breaks if this ships".
type ImpactAssessment struct {
	IssuesAnalyzed    int                    `json:"issues_analyzed"`
	AffectedClients   []string               `json:"affected_clients"`
	ClientDetails     map[string]ClientUsage `json:"client_details,omitempty"`
	Confidence        float64                `json:"confidence"`
	BlastRadius       int                    `json:"blast_radius"`
	CriticalClients   []string               `json:"critical_clients,omitempty"`
	RecommendedAction string                 `json:"recommended_action,omitempty"`
	AssessedAt        time.Time              `json:"assessed_at"`
}

// Recommendation is a single actionable follow-up derived from an assessment.
type Recommendation struct {
	Priority string `json:"priority"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
}
