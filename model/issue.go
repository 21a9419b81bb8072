package model

import "time"

// IssueType identifies the kind of drift detected between an observed
// schema and the declared contract.
type IssueType string

const (
	IssueBreakingChange         IssueType = "BREAKING_CHANGE"
	IssueFieldMissing           IssueType = "FIELD_MISSING"
	IssueFieldAddedUndocumented IssueType = "FIELD_ADDED_UNDOCUMENTED"
	IssueTypeMismatch           IssueType = "TYPE_MISMATCH"
	IssueOptionalToRequired     IssueType = "OPTIONAL_TO_REQUIRED"
	IssueRequiredToOptional     IssueType = "REQUIRED_TO_OPTIONAL"
	IssueStatusCodeChange       IssueType = "STATUS_CODE_CHANGE"
	IssueNullabilityChange      IssueType = "NULLABILITY_CHANGE"
	IssueFormatChange           IssueType = "FORMAT_CHANGE"
)

// RiskLevel is the severity assigned to an issue.
type RiskLevel string

const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskLow      RiskLevel = "LOW"
	RiskInfo     RiskLevel = "INFO"
)

// Rank returns the sort rank for a risk level, lower is more severe.
// Unrecognized levels sort last.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskCritical:
		return 0
	case RiskHigh:
		return 1
	case RiskMedium:
		return 2
	case RiskLow:
		return 3
	case RiskInfo:
		return 4
	}
	return 5
}

// Issue is a single detected contract violation or drift.
type Issue struct {
	Type           IssueType `json:"issue_type"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	FieldPath      string    `json:"field_path,omitempty"`
	Detail         string    `json:"detail"`
	Risk           RiskLevel `json:"risk"`
	Explanation    string    `json:"explanation,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
	Observed       any       `json:"observed_value,omitempty"`
	Expected       any       `json:"expected_value,omitempty"`
	PresenceRate   *float64  `json:"presence_rate,omitempty"`
	DetectedAt     time.Time `json:"detected_at"`
}
