// Package masker scrubs sensitive values from traffic payloads before they
// reach schema inference, while preserving enough type shape that inference
// is unaffected.
package masker

import (
	"math"
	"regexp"
	"strings"
)

// DefaultMaskValue replaces sensitive string values.
const DefaultMaskValue = "[MASKED]"

// patterns match PII shapes inside free-form string values. Matched
// substrings are replaced by a tagged placeholder token. The tokens contain
// no digits or address characters, so re-masking is a fixed point.
var patterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"EMAIL", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"CREDIT_CARD", regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)},
	{"PHONE", regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)},
	{"IP_ADDRESS", regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)},
	{"DATE_OF_BIRTH", regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)},
}

// sensitiveFields is the field-name sensitivity lexicon. A normalized map
// key containing any entry as a substring triggers masking of the whole
// value.
var sensitiveFields = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey",
	"authorization", "auth", "credential", "private_key",
	"ssn", "social_security", "tax_id",
	"email", "mail", "phone", "mobile", "telephone",
	"address", "street", "city", "zip", "postal",
	"dob", "date_of_birth", "birthday", "birthdate",
	"credit_card", "card_number", "cvv", "ccv",
	"bank_account", "routing_number",
	"first_name", "last_name", "full_name", "name",
	"ip", "ip_address", "user_agent",
}

// Config holds masker options.
type Config struct {
	// MaskValue replaces sensitive strings. Empty means DefaultMaskValue.
	MaskValue string `yaml:"mask_value" json:"mask_value"`
}

// Masker masks PII in decoded JSON values. The zero value is not usable;
// construct with New.
type Masker struct {
	maskValue string
}

// New creates a Masker from config, applying defaults for zero values.
func New(cfg Config) *Masker {
	maskValue := cfg.MaskValue
	if maskValue == "" {
		maskValue = DefaultMaskValue
	}
	return &Masker{maskValue: maskValue}
}

// Mask returns a masked copy of v. Maps and slices are rebuilt, scalars are
// returned as-is or replaced. Masking an already-masked value with the same
// rule set is a fixed point.
func (m *Masker) Mask(v any) any {
	switch val := v.(type) {
	case map[string]any:
		masked := make(map[string]any, len(val))
		for key, value := range val {
			if IsSensitiveField(key) {
				masked[key] = m.typePreservingMask(value)
			} else {
				masked[key] = m.Mask(value)
			}
		}
		return masked
	case []any:
		masked := make([]any, len(val))
		for i, item := range val {
			masked[i] = m.Mask(item)
		}
		return masked
	case string:
		return maskString(val)
	default:
		return v
	}
}

// MaskHeaders masks a header map, treating every header name as a field name.
func (m *Masker) MaskHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	masked := make(map[string]string, len(headers))
	for key, value := range headers {
		if IsSensitiveField(key) {
			masked[key] = m.maskValue
		} else {
			masked[key] = maskString(value)
		}
	}
	return masked
}

// typePreservingMask replaces a sensitive value with a placeholder of the
// same shape so downstream type inference still sees the original type.
func (m *Masker) typePreservingMask(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bool:
		return true
	case float64:
		// JSON numbers decode to float64; keep the integer/number split.
		if val == math.Trunc(val) {
			return float64(0)
		}
		return 0.5
	case int:
		return 0
	case int64:
		return int64(0)
	case string:
		return m.maskValue
	case []any:
		if len(val) == 0 {
			return []any{}
		}
		return []any{m.typePreservingMask(val[0])}
	case map[string]any:
		masked := make(map[string]any, len(val))
		for key, value := range val {
			masked[key] = m.typePreservingMask(value)
		}
		return masked
	default:
		return m.maskValue
	}
}

func maskString(s string) string {
	result := s
	for _, p := range patterns {
		result = p.re.ReplaceAllString(result, "[MASKED_"+p.name+"]")
	}
	return result
}

// IsSensitiveField reports whether a field name indicates sensitive data.
// Names are compared case-insensitively with "-" and spaces normalized to
// "_".
func IsSensitiveField(name string) bool {
	normalized := strings.ToLower(name)
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	for _, s := range sensitiveFields {
		if strings.Contains(normalized, s) {
			return true
		}
	}
	return false
}
