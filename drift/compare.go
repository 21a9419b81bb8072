// Package drift diffs observed schemas against declared contracts and
// classifies the resulting issues.
package drift

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/achuajays/schemasentry/contract"
	"github.com/achuajays/schemasentry/model"
)

// lowPresenceThreshold marks fields that appear in fewer than half of the
// responses as drift warnings regardless of whether they are required.
const lowPresenceThreshold = 0.5

// Compare diffs an observed schema against the declared fields for the same
// endpoint/method pair. A nil declared map means the pair is absent from
// the contract entirely, which short-circuits into a single
// endpoint-granularity issue. Identical schemas yield zero issues.
func Compare(observed *model.ObservedSchema, declared map[string]model.ContractField) []model.Issue {
	if declared == nil {
		return []model.Issue{{
			Type:     model.IssueFieldAddedUndocumented,
			Endpoint: observed.Endpoint,
			Method:   observed.Method,
			Detail:   fmt.Sprintf("Endpoint %s %s not found in the declared contract", observed.Method, observed.Endpoint),
			Risk:     model.RiskMedium,
		}}
	}

	var issues []model.Issue
	add := func(is model.Issue) {
		is.Endpoint = observed.Endpoint
		is.Method = observed.Method
		issues = append(issues, is)
	}

	// Declared but never observed.
	for path, field := range declared {
		if _, ok := observed.Fields[path]; ok {
			continue
		}
		if field.Required {
			add(model.Issue{
				Type:      model.IssueFieldMissing,
				FieldPath: path,
				Detail:    fmt.Sprintf("Required field %q declared in the contract but never observed in traffic", path),
				Risk:      model.RiskHigh,
				Expected:  field,
			})
		} else {
			add(model.Issue{
				Type:      model.IssueFieldMissing,
				FieldPath: path,
				Detail:    fmt.Sprintf("Optional field %q declared in the contract but never observed", path),
				Risk:      model.RiskLow,
			})
		}
	}

	for path, info := range observed.Fields {
		field, ok := declared[path]
		if !ok {
			// Observed but undocumented.
			add(model.Issue{
				Type:      model.IssueFieldAddedUndocumented,
				FieldPath: path,
				Detail:    fmt.Sprintf("Field %q observed in traffic but not declared in the contract", path),
				Risk:      model.RiskMedium,
				Observed:  info.Type,
			})
			continue
		}

		// Unknown declared types accept anything; mixed observations are
		// inconclusive and never flagged as a type mismatch.
		if field.Type != model.TypeUnknown && info.Type != model.TypeMixed && !info.Type.CompatibleWith(field.Type) {
			add(model.Issue{
				Type:      model.IssueTypeMismatch,
				FieldPath: path,
				Detail:    fmt.Sprintf("Field %q declared as %q but observed as %q", path, field.Type, info.Type),
				Risk:      model.RiskHigh,
				Expected:  field.Type,
				Observed:  info.Type,
			})
		}

		if !field.Nullable && info.Nullable {
			add(model.Issue{
				Type:      model.IssueNullabilityChange,
				FieldPath: path,
				Detail:    fmt.Sprintf("Field %q is not nullable in the contract but null values were observed", path),
				Risk:      model.RiskMedium,
			})
		}

		presence := info.PresenceRate
		if field.Required && presence < 1.0 {
			add(model.Issue{
				Type:         model.IssueBreakingChange,
				FieldPath:    path,
				Detail:       fmt.Sprintf("Required field %q is missing in %.1f%% of responses", path, (1-presence)*100),
				Risk:         model.RiskCritical,
				PresenceRate: &presence,
			})
		} else if presence < lowPresenceThreshold {
			add(model.Issue{
				Type:         model.IssueOptionalToRequired,
				FieldPath:    path,
				Detail:       fmt.Sprintf("Field %q appears in only %.1f%% of responses (may have become optional)", path, presence*100),
				Risk:         model.RiskMedium,
				PresenceRate: &presence,
			})
		}

		if is, ok := formatIssue(path, field, info); ok {
			add(is)
		}
	}

	sortIssues(issues)
	return issues
}

// CompareEndpoint resolves the declared fields for the observed schema's
// endpoint/method pair from a parsed document and diffs them, additionally
// checking observed status codes against the declared ones.
func CompareEndpoint(observed *model.ObservedSchema, doc *contract.Document) []model.Issue {
	ep, ok := doc.EndpointFor(observed.Endpoint, observed.Method)
	if !ok {
		return Compare(observed, nil)
	}

	issues := Compare(observed, ep.Fields)

	if len(ep.StatusCodes) > 0 {
		declared := make(map[int]bool, len(ep.StatusCodes))
		for _, code := range ep.StatusCodes {
			declared[code] = true
		}
		for _, code := range observed.StatusCodes {
			if !declared[code] {
				issues = append(issues, model.Issue{
					Type:     model.IssueStatusCodeChange,
					Endpoint: observed.Endpoint,
					Method:   observed.Method,
					Detail:   fmt.Sprintf("Status code %d observed in traffic but not declared in the contract", code),
					Risk:     model.RiskMedium,
					Observed: code,
				})
			}
		}
		sortIssues(issues)
	}
	return issues
}

// formatPatterns validate string sample values against the formats the
// engine understands. Masked placeholder values are skipped.
var formatPatterns = map[string]*regexp.Regexp{
	"email": regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`),
	"date":  regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
}

func formatIssue(path string, field model.ContractField, info model.FieldInfo) (model.Issue, bool) {
	if field.Format == "" || field.Type != model.TypeString {
		return model.Issue{}, false
	}

	checked, failed := 0, 0
	for _, sample := range info.SampleValues {
		s, ok := sample.(string)
		if !ok || strings.Contains(s, "[MASKED") {
			continue
		}
		checked++
		if !matchesFormat(field.Format, s) {
			failed++
		}
	}
	if checked == 0 || failed < checked {
		return model.Issue{}, false
	}
	return model.Issue{
		Type:      model.IssueFormatChange,
		FieldPath: path,
		Detail:    fmt.Sprintf("Field %q observed values do not match declared format %q", path, field.Format),
		Risk:      model.RiskLow,
		Expected:  field.Format,
	}, true
}

func matchesFormat(format, value string) bool {
	switch format {
	case "date-time":
		_, err := time.Parse(time.RFC3339, value)
		return err == nil
	case "uuid":
		_, err := uuid.Parse(value)
		return err == nil
	default:
		if re, ok := formatPatterns[format]; ok {
			return re.MatchString(value)
		}
		// Unrecognized formats are not validated.
		return true
	}
}

func sortIssues(issues []model.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Risk.Rank() != issues[j].Risk.Rank() {
			return issues[i].Risk.Rank() < issues[j].Risk.Rank()
		}
		return issues[i].FieldPath < issues[j].FieldPath
	})
}
