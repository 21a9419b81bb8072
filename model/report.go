package model

import "time"

// AnalysisReport aggregates the output of one full pipeline run: the
// observed schemas, the classified issues and an optional impact
// assessment. Created empty, populated stage by stage; the summary counters
// are recomputed once at the end, never partially.
type AnalysisReport struct {
	ReportID    string    `json:"report_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Schemas         []ObservedSchema  `json:"observed_schemas,omitempty"`
	Issues          []Issue           `json:"contract_issues,omitempty"`
	Impact          *ImpactAssessment `json:"impact_assessment,omitempty"`
	Recommendations []Recommendation  `json:"recommendations,omitempty"`

	EndpointsAnalyzed int `json:"total_endpoints_analyzed"`
	TotalIssues       int `json:"total_issues_found"`
	CriticalIssues    int `json:"critical_issues"`
	HighRiskIssues    int `json:"high_risk_issues"`
}

// RecomputeSummary recalculates the derived counters from the populated
// schema and issue lists.
func (r *AnalysisReport) RecomputeSummary() {
	r.EndpointsAnalyzed = len(r.Schemas)
	r.TotalIssues = len(r.Issues)
	r.CriticalIssues = 0
	r.HighRiskIssues = 0
	for _, is := range r.Issues {
		switch is.Risk {
		case RiskCritical:
			r.CriticalIssues++
		case RiskHigh:
			r.HighRiskIssues++
		}
	}
}
