// Package observer infers per-field types and presence-rate statistics from
// sampled API traffic.
package observer

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/achuajays/schemasentry/model"
)

// DefaultMaxDepth bounds recursive payload traversal. Subtrees below the
// limit are skipped and the resulting schema is marked truncated.
const DefaultMaxDepth = 50

// maxSampleValues is the number of distinct sample values kept per field.
const maxSampleValues = 3

// Infer returns the deterministic type tag for a decoded JSON value.
// Integer-valued numbers are tagged integer, all other numbers number.
func Infer(v any) model.FieldType {
	switch val := v.(type) {
	case nil:
		return model.TypeNull
	case bool:
		return model.TypeBoolean
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) {
			return model.TypeInteger
		}
		return model.TypeNumber
	case int, int64:
		return model.TypeInteger
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return model.TypeInteger
		}
		return model.TypeNumber
	case string:
		return model.TypeString
	case []any:
		return model.TypeArray
	case map[string]any:
		return model.TypeObject
	default:
		return model.TypeUnknown
	}
}

// Config holds observer options.
type Config struct {
	// MaxDepth bounds payload recursion. Zero means DefaultMaxDepth.
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
}

// Observer builds observed schemas from traffic sample batches.
type Observer struct {
	maxDepth int
}

// New creates an Observer from config, applying defaults for zero values.
func New(cfg Config) *Observer {
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Observer{maxDepth: maxDepth}
}

// fieldStats accumulates per-path statistics during a batch walk.
type fieldStats struct {
	occurrences int
	typeCounts  map[model.FieldType]int
	nullCount   int
	samples     []any
}

// Observe aggregates a batch of samples into an ObservedSchema for one
// endpoint/method pair. Samples without a response payload are excluded
// from the valid-sample total and do not lower presence rates. A batch with
// no valid payload returns model.ErrNoValidSamples.
func (o *Observer) Observe(endpoint, method string, samples []model.TrafficRecord) (*model.ObservedSchema, error) {
	stats := make(map[string]*fieldStats)
	statusCodes := make(map[int]bool)
	var (
		totalValid  int
		truncated   bool
		windowStart time.Time
		windowEnd   time.Time
	)

	for _, sample := range samples {
		if sample.ResponseBody == nil {
			continue
		}
		totalValid++
		statusCodes[sample.StatusCode] = true

		if ts := sample.Timestamp; !ts.IsZero() {
			if windowStart.IsZero() || ts.Before(windowStart) {
				windowStart = ts
			}
			if ts.After(windowEnd) {
				windowEnd = ts
			}
		}

		if o.walk(sample.ResponseBody, "", 0, stats) {
			truncated = true
		}
	}

	if totalValid == 0 {
		return nil, model.ErrNoValidSamples
	}

	now := time.Now()
	if windowStart.IsZero() {
		windowStart = now
	}
	if windowEnd.IsZero() {
		windowEnd = now
	}

	fields := make(map[string]model.FieldInfo, len(stats))
	for path, fs := range stats {
		fields[path] = model.FieldInfo{
			Path:         path,
			Type:         predominantType(fs.typeCounts),
			Nullable:     fs.nullCount > 0,
			PresenceRate: clamp01(float64(fs.occurrences) / float64(totalValid)),
			SampleValues: fs.samples,
		}
	}

	codes := make([]int, 0, len(statusCodes))
	for code := range statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	return &model.ObservedSchema{
		Endpoint:    endpoint,
		Method:      method,
		Fields:      fields,
		SampleCount: totalValid,
		StatusCodes: codes,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Truncated:   truncated,
	}, nil
}

// walk descends into a payload value accumulating field statistics. It
// returns true if the depth guard cut off part of the traversal.
func (o *Observer) walk(v any, prefix string, depth int, stats map[string]*fieldStats) bool {
	if depth >= o.maxDepth {
		return true
	}

	truncated := false
	switch val := v.(type) {
	case map[string]any:
		for key, value := range val {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			fs := stats[path]
			if fs == nil {
				fs = &fieldStats{typeCounts: make(map[model.FieldType]int)}
				stats[path] = fs
			}
			fs.occurrences++
			fs.typeCounts[Infer(value)]++
			if value == nil {
				fs.nullCount++
			} else if len(fs.samples) < maxSampleValues {
				fs.samples = append(fs.samples, value)
			}

			switch inner := value.(type) {
			case map[string]any:
				if o.walk(inner, path, depth+1, stats) {
					truncated = true
				}
			case []any:
				if len(inner) > 0 {
					if _, ok := inner[0].(map[string]any); ok {
						if o.walk(inner[0], path+"[]", depth+1, stats) {
							truncated = true
						}
					}
				}
			}
		}
	case []any:
		if len(val) > 0 {
			if _, ok := val[0].(map[string]any); ok {
				if o.walk(val[0], prefix+"[]", depth+1, stats) {
					truncated = true
				}
			}
		}
	}
	return truncated
}

// predominantType picks the most frequent observed type, or mixed when more
// than one distinct type was seen.
func predominantType(counts map[model.FieldType]int) model.FieldType {
	if len(counts) > 1 {
		return model.TypeMixed
	}
	for t := range counts {
		return t
	}
	return model.TypeUnknown
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
