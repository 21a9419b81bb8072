package drift

import (
	"fmt"
	"sort"
	"time"

	"github.com/achuajays/schemasentry/model"
)

// rule is one entry of the fixed classification table: a deterministic
// explanation/recommendation pair parameterized by the issue's fields.
type rule struct {
	explain   func(is model.Issue) string
	recommend func(is model.Issue) string
}

var classificationRules = map[model.IssueType]rule{
	model.IssueBreakingChange: {
		explain: func(is model.Issue) string {
			return fmt.Sprintf("This is a critical breaking change. Clients expecting the field %q will fail when it is missing. "+
				"This can cause null pointer exceptions, parse errors, or incorrect business logic.", is.FieldPath)
		},
		recommend: func(model.Issue) string {
			return "Immediately investigate why this field is sometimes missing. " +
				"Consider making the field reliably present or explicitly documenting it as optional."
		},
	},
	model.IssueFieldMissing: {
		explain: func(is model.Issue) string {
			return fmt.Sprintf("The field %q is declared in your API contract but was never seen in actual traffic. "+
				"This could mean the field is deprecated, conditionally returned, or there is a bug in the API implementation.", is.FieldPath)
		},
		recommend: func(model.Issue) string {
			return "Verify whether this field should still be in the contract. " +
				"If deprecated, update the OpenAPI spec. If it is conditional, document the conditions."
		},
	},
	model.IssueTypeMismatch: {
		explain: func(is model.Issue) string {
			return fmt.Sprintf("The field %q is declared as %q but the API is returning %q. "+
				"This type mismatch can cause client-side parsing errors or unexpected behavior.",
				is.FieldPath, fmt.Sprint(is.Expected), fmt.Sprint(is.Observed))
		},
		recommend: func(model.Issue) string {
			return "Either update the API to return the correct type or update the OpenAPI spec to reflect the actual response format."
		},
	},
	model.IssueNullabilityChange: {
		explain: func(is model.Issue) string {
			return fmt.Sprintf("The field %q is not declared as nullable but null values were observed. "+
				"Clients may not handle null values correctly.", is.FieldPath)
		},
		recommend: func(model.Issue) string {
			return "Update the OpenAPI spec to mark this field as nullable, or fix the API to ensure it never returns null for this field."
		},
	},
	model.IssueFieldAddedUndocumented: {
		explain: func(is model.Issue) string {
			if is.FieldPath == "" {
				return fmt.Sprintf("The endpoint %s %s serves traffic but is not documented in the OpenAPI spec. "+
					"Clients may start depending on an undocumented endpoint.", is.Method, is.Endpoint)
			}
			return fmt.Sprintf("The field %q appears in API responses but is not documented in the OpenAPI spec. "+
				"While not immediately breaking, clients may start depending on this undocumented field.", is.FieldPath)
		},
		recommend: func(model.Issue) string {
			return "Add this to the OpenAPI spec to officially document it, or remove it from the API response if it was added accidentally."
		},
	},
	model.IssueOptionalToRequired: {
		explain: func(is model.Issue) string {
			return fmt.Sprintf("The field %q appears in only a fraction of responses. "+
				"Clients treating it as always present will intermittently fail.", is.FieldPath)
		},
		recommend: func(model.Issue) string {
			return "Document the field as optional in the OpenAPI spec, or make the API return it consistently."
		},
	},
	model.IssueStatusCodeChange: {
		explain: func(is model.Issue) string {
			return fmt.Sprintf("The endpoint %s %s returned a status code that is not declared in the contract. "+
				"Clients switching on status codes may mishandle the response.", is.Method, is.Endpoint)
		},
		recommend: func(model.Issue) string {
			return "Declare the status code in the OpenAPI spec or fix the API to stay within the declared set."
		},
	},
	model.IssueFormatChange: {
		explain: func(is model.Issue) string {
			return fmt.Sprintf("Observed values of field %q do not match its declared format %q. "+
				"Clients parsing the value by format will reject it.", is.FieldPath, fmt.Sprint(is.Expected))
		},
		recommend: func(model.Issue) string {
			return "Align the value format with the contract or correct the declared format."
		},
	},
}

// Classify enriches issues with a deterministic explanation and
// recommendation from the fixed rule table. Risk levels pass through
// unchanged. Unknown issue types fall back to echoing the raw detail with a
// generic recommendation; Classify never fails.
func Classify(issues []model.Issue) []model.Issue {
	now := time.Now()
	classified := make([]model.Issue, len(issues))
	for i, is := range issues {
		if r, ok := classificationRules[is.Type]; ok {
			is.Explanation = r.explain(is)
			is.Recommendation = r.recommend(is)
		} else {
			is.Explanation = is.Detail
			is.Recommendation = "Review this issue and determine the appropriate action."
		}
		is.DetectedAt = now
		classified[i] = is
	}
	return classified
}

// breakingTypes are the issue kinds that plausibly fail an existing client.
var breakingTypes = map[model.IssueType]bool{
	model.IssueBreakingChange:    true,
	model.IssueFieldMissing:      true,
	model.IssueTypeMismatch:      true,
	model.IssueNullabilityChange: true,
}

// SplitBreaking separates issues into breaking changes (breaking issue
// kinds or CRITICAL/HIGH risk) and warnings, each sorted by severity.
func SplitBreaking(issues []model.Issue) (breaking, warnings []model.Issue) {
	for _, is := range issues {
		if breakingTypes[is.Type] || is.Risk == model.RiskCritical || is.Risk == model.RiskHigh {
			breaking = append(breaking, is)
		} else {
			warnings = append(warnings, is)
		}
	}
	sort.SliceStable(breaking, func(i, j int) bool { return breaking[i].Risk.Rank() < breaking[j].Risk.Rank() })
	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].Risk.Rank() < warnings[j].Risk.Rank() })
	return breaking, warnings
}
