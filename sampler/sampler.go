// Package sampler reduces API traffic batches to representative subsets. It
// provides a stateless batch sampler and a stateful adaptive sampler with
// per-endpoint reservoir buffers.
package sampler

import (
	"fmt"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"

	"github.com/achuajays/schemasentry/masker"
	"github.com/achuajays/schemasentry/model"
)

// Stats summarizes one stateless sampling pass.
type Stats struct {
	OriginalCount int     `json:"original_count"`
	SampleCount   int     `json:"sample_count"`
	Rate          float64 `json:"sample_rate"`
	PIIMasked     bool    `json:"pii_masked"`
}

// Sample selects max(1, floor(n*rate)) records uniformly without
// replacement. Rate must be in (0, 1]. When maskPII is set, request and
// response bodies and header values are scrubbed before being returned; the
// input records are never mutated.
func Sample(records []model.TrafficRecord, rate float64, maskPII bool) ([]model.TrafficRecord, Stats, error) {
	if rate <= 0 || rate > 1 {
		return nil, Stats{}, fmt.Errorf("sample rate %v out of range (0, 1]", rate)
	}

	stats := Stats{OriginalCount: len(records), Rate: rate, PIIMasked: maskPII}
	if len(records) == 0 {
		return nil, stats, nil
	}

	count := int(float64(len(records)) * rate)
	if count < 1 {
		count = 1
	}
	if count > len(records) {
		count = len(records)
	}

	// Partial Fisher-Yates over an index permutation.
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	selected := make([]model.TrafficRecord, 0, count)
	for i := 0; i < count; i++ {
		j := i + rand.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		selected = append(selected, records[idx[i]])
	}

	if maskPII {
		m := masker.New(masker.Config{})
		for i := range selected {
			selected[i] = maskRecord(m, selected[i])
		}
	}

	stats.SampleCount = len(selected)
	return selected, stats, nil
}

// ShouldSample decides deterministically whether a record with a stable
// identifier is sampled at the given rate: the same identifier and rate
// always produce the same decision across calls and processes.
func ShouldSample(id string, rate float64) bool {
	return xxhash.Sum64String(id)%100 < uint64(rate*100)
}

func maskRecord(m *masker.Masker, rec model.TrafficRecord) model.TrafficRecord {
	if rec.RequestBody != nil {
		rec.RequestBody = m.Mask(rec.RequestBody)
	}
	if rec.ResponseBody != nil {
		rec.ResponseBody = m.Mask(rec.ResponseBody)
	}
	rec.Headers = m.MaskHeaders(rec.Headers)
	return rec
}

// Key returns the per-endpoint buffer key for a record.
func Key(method, endpoint string) string {
	return method + " " + endpoint
}
