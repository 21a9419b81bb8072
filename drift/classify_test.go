package drift

import (
	"strings"
	"testing"

	"github.com/achuajays/schemasentry/model"
)

func TestClassifyKnownTypes(t *testing.T) {
	issues := []model.Issue{
		{Type: model.IssueBreakingChange, Endpoint: "/api/users", Method: "GET", FieldPath: "id", Risk: model.RiskCritical},
		{Type: model.IssueTypeMismatch, Endpoint: "/api/users", Method: "GET", FieldPath: "total",
			Expected: model.TypeInteger, Observed: model.TypeString, Risk: model.RiskHigh},
		{Type: model.IssueFieldAddedUndocumented, Endpoint: "/api/users", Method: "GET", Risk: model.RiskMedium},
	}

	classified := Classify(issues)
	if len(classified) != len(issues) {
		t.Fatalf("classified %d issues, want %d", len(classified), len(issues))
	}
	for _, is := range classified {
		if is.Explanation == "" || is.Recommendation == "" {
			t.Errorf("%s: missing explanation or recommendation", is.Type)
		}
		if is.DetectedAt.IsZero() {
			t.Errorf("%s: DetectedAt not stamped", is.Type)
		}
	}

	if !strings.Contains(classified[0].Explanation, `"id"`) {
		t.Errorf("breaking change explanation = %q", classified[0].Explanation)
	}
	if !strings.Contains(classified[1].Explanation, `"integer"`) || !strings.Contains(classified[1].Explanation, `"string"`) {
		t.Errorf("type mismatch explanation = %q", classified[1].Explanation)
	}
	// Endpoint-granularity issue explains the endpoint, not a field.
	if !strings.Contains(classified[2].Explanation, "/api/users") {
		t.Errorf("endpoint issue explanation = %q", classified[2].Explanation)
	}

	// Risk levels pass through unchanged.
	if classified[0].Risk != model.RiskCritical || classified[1].Risk != model.RiskHigh {
		t.Errorf("risk levels changed: %v %v", classified[0].Risk, classified[1].Risk)
	}
}

func TestClassifyUnknownTypeFallsBack(t *testing.T) {
	issues := Classify([]model.Issue{{
		Type:   model.IssueType("SOMETHING_NEW"),
		Detail: "strange drift",
		Risk:   model.RiskInfo,
	}})
	is := issues[0]
	if is.Explanation != "strange drift" {
		t.Errorf("explanation = %q, want the raw detail", is.Explanation)
	}
	if is.Recommendation == "" {
		t.Errorf("missing fallback recommendation")
	}
}

func TestClassifyDoesNotMutateInput(t *testing.T) {
	in := []model.Issue{{Type: model.IssueBreakingChange, FieldPath: "id"}}
	Classify(in)
	if in[0].Explanation != "" || !in[0].DetectedAt.IsZero() {
		t.Errorf("input slice mutated: %+v", in[0])
	}
}

func TestSplitBreaking(t *testing.T) {
	issues := []model.Issue{
		{Type: model.IssueFieldAddedUndocumented, Risk: model.RiskMedium},
		{Type: model.IssueBreakingChange, Risk: model.RiskCritical},
		{Type: model.IssueStatusCodeChange, Risk: model.RiskMedium},
		{Type: model.IssueTypeMismatch, Risk: model.RiskHigh},
		{Type: model.IssueFormatChange, Risk: model.RiskLow},
	}

	breaking, warnings := SplitBreaking(issues)
	if len(breaking) != 2 {
		t.Fatalf("breaking = %v", breaking)
	}
	if breaking[0].Type != model.IssueBreakingChange || breaking[1].Type != model.IssueTypeMismatch {
		t.Errorf("breaking order = %v", breaking)
	}
	if len(warnings) != 3 {
		t.Fatalf("warnings = %v", warnings)
	}
	for _, is := range warnings {
		if is.Risk == model.RiskCritical || is.Risk == model.RiskHigh {
			t.Errorf("severe issue landed in warnings: %+v", is)
		}
	}
}
