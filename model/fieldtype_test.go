package model

import "testing"

func TestCompatibleWith(t *testing.T) {
	tests := []struct {
		name     string
		observed FieldType
		declared FieldType
		want     bool
	}{
		{"exact string", TypeString, TypeString, true},
		{"exact object", TypeObject, TypeObject, true},
		{"integer satisfies number", TypeInteger, TypeNumber, true},
		{"number satisfies integer", TypeNumber, TypeInteger, true},
		{"string vs integer", TypeString, TypeInteger, false},
		{"boolean vs string", TypeBoolean, TypeString, false},
		{"null vs string", TypeNull, TypeString, false},
		{"array vs object", TypeArray, TypeObject, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.observed.CompatibleWith(tt.declared); got != tt.want {
				t.Errorf("%s.CompatibleWith(%s) = %v, want %v", tt.observed, tt.declared, got, tt.want)
			}
		})
	}
}

func TestRiskRank(t *testing.T) {
	order := []RiskLevel{RiskCritical, RiskHigh, RiskMedium, RiskLow, RiskInfo}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("Rank(%s) = %d not below Rank(%s) = %d", order[i-1], order[i-1].Rank(), order[i], order[i].Rank())
		}
	}
	if RiskLevel("bogus").Rank() <= RiskInfo.Rank() {
		t.Errorf("unknown risk level should sort last")
	}
}

func TestRecomputeSummary(t *testing.T) {
	report := AnalysisReport{
		Schemas: []ObservedSchema{{Endpoint: "/a"}, {Endpoint: "/b"}},
		Issues: []Issue{
			{Risk: RiskCritical},
			{Risk: RiskHigh},
			{Risk: RiskHigh},
			{Risk: RiskMedium},
		},
	}
	report.RecomputeSummary()
	if report.EndpointsAnalyzed != 2 {
		t.Errorf("EndpointsAnalyzed = %d, want 2", report.EndpointsAnalyzed)
	}
	if report.TotalIssues != 4 {
		t.Errorf("TotalIssues = %d, want 4", report.TotalIssues)
	}
	if report.CriticalIssues != 1 || report.HighRiskIssues != 2 {
		t.Errorf("critical/high = %d/%d, want 1/2", report.CriticalIssues, report.HighRiskIssues)
	}
}
