package sampler

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/achuajays/schemasentry/model"
)

const (
	defaultSampleRate      = 0.1
	defaultMaxPerEndpoint  = 1000
	defaultWindowMinutes   = 60
	defaultTargetPerMinute = 100
	defaultMinRate         = 0.01
	defaultMaxRate         = 1.0
	defaultAdjustInterval  = time.Minute
)

// Config holds adaptive sampler options. Zero values take the defaults.
type Config struct {
	SampleRate             float64       `yaml:"sample_rate" json:"sample_rate"`
	MaxSamplesPerEndpoint  int           `yaml:"max_samples_per_endpoint" json:"max_samples_per_endpoint"`
	WindowMinutes          int           `yaml:"window_minutes" json:"window_minutes"`
	TargetSamplesPerMinute int           `yaml:"target_samples_per_minute" json:"target_samples_per_minute"`
	MinRate                float64       `yaml:"min_rate" json:"min_rate"`
	MaxRate                float64       `yaml:"max_rate" json:"max_rate"`
	AdjustInterval         time.Duration `yaml:"adjust_interval" json:"adjust_interval"`

	// Registerer receives the sampler's Prometheus collectors. Nil leaves
	// them unregistered.
	Registerer prometheus.Registerer `yaml:"-" json:"-"`
}

// endpointBuffer is one bounded reservoir. Each buffer has its own mutex so
// concurrent AddSample calls against different endpoint keys never contend.
type endpointBuffer struct {
	mu      sync.Mutex
	records []model.TrafficRecord
	seen    int
}

// WindowSnapshot is an immutable snapshot of all buffers at rotation time.
type WindowSnapshot struct {
	Samples      map[string][]model.TrafficRecord `json:"samples"`
	WindowStart  time.Time                        `json:"window_start"`
	WindowEnd    time.Time                        `json:"window_end"`
	TotalSamples int                              `json:"total_samples"`
	Endpoints    int                              `json:"endpoints_observed"`
}

// AdaptiveSampler keeps a bounded reservoir of traffic per endpoint and
// self-adjusts its sampling rate toward a target samples-per-minute. It owns
// all of its state; no package-level buffers.
type AdaptiveSampler struct {
	mu          sync.RWMutex
	buffers     map[string]*endpointBuffer
	windowStart time.Time

	rateMu       sync.Mutex
	rate         float64
	requestCount int
	lastAdjust   time.Time

	maxPerEndpoint int
	windowMinutes  int
	targetPerMin   int
	minRate        float64
	maxRate        float64
	adjustInterval time.Duration

	logger  *zap.Logger
	metrics *metrics
	now     func() time.Time
}

// NewAdaptive creates an AdaptiveSampler from config, applying defaults for
// zero values. A nil logger is replaced with a no-op logger.
func NewAdaptive(cfg Config, logger *zap.Logger) *AdaptiveSampler {
	if cfg.SampleRate <= 0 || cfg.SampleRate > 1 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.MaxSamplesPerEndpoint <= 0 {
		cfg.MaxSamplesPerEndpoint = defaultMaxPerEndpoint
	}
	if cfg.WindowMinutes <= 0 {
		cfg.WindowMinutes = defaultWindowMinutes
	}
	if cfg.TargetSamplesPerMinute <= 0 {
		cfg.TargetSamplesPerMinute = defaultTargetPerMinute
	}
	if cfg.MinRate <= 0 {
		cfg.MinRate = defaultMinRate
	}
	if cfg.MaxRate <= 0 || cfg.MaxRate > 1 {
		cfg.MaxRate = defaultMaxRate
	}
	if cfg.AdjustInterval <= 0 {
		cfg.AdjustInterval = defaultAdjustInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	now := time.Now()
	s := &AdaptiveSampler{
		buffers:        make(map[string]*endpointBuffer),
		windowStart:    now,
		rate:           cfg.SampleRate,
		lastAdjust:     now,
		maxPerEndpoint: cfg.MaxSamplesPerEndpoint,
		windowMinutes:  cfg.WindowMinutes,
		targetPerMin:   cfg.TargetSamplesPerMinute,
		minRate:        cfg.MinRate,
		maxRate:        cfg.MaxRate,
		adjustInterval: cfg.AdjustInterval,
		logger:         logger,
		metrics:        newMetrics(cfg.Registerer),
		now:            time.Now,
	}
	s.metrics.currentRate.Set(s.rate)
	return s
}

// Rate returns the current sampling rate.
func (s *AdaptiveSampler) Rate() float64 {
	s.rateMu.Lock()
	defer s.rateMu.Unlock()
	return s.rate
}

// ShouldSample counts the request and decides whether to sample it. With a
// stable identifier the decision is the deterministic hash test; otherwise
// it is random at the current rate. The rate is re-adjusted once per
// interval from the interval that just closed, not the one in progress, so
// a burst cannot swing the rate it is being sampled under.
func (s *AdaptiveSampler) ShouldSample(id string) bool {
	rate := s.observeRequest()
	if id != "" {
		return ShouldSample(id, rate)
	}
	return rand.Float64() < rate
}

// observeRequest bumps the interval request counter and performs the
// periodic rate adjustment, returning the rate in effect for this request.
func (s *AdaptiveSampler) observeRequest() float64 {
	s.rateMu.Lock()
	defer s.rateMu.Unlock()
	s.requestCount++

	now := s.now()
	elapsed := now.Sub(s.lastAdjust)
	if elapsed >= s.adjustInterval {
		perMinute := float64(s.requestCount) / elapsed.Minutes()
		if perMinute > 0 {
			ideal := float64(s.targetPerMin) / perMinute
			s.rate = clampRate(ideal, s.minRate, s.maxRate)
			s.metrics.rateAdjusted.Inc()
			s.metrics.currentRate.Set(s.rate)
			s.logger.Debug("adjusted sampling rate",
				zap.Float64("rate", s.rate),
				zap.Float64("requests_per_minute", perMinute),
			)
		}
		s.requestCount = 0
		s.lastAdjust = now
	}
	return s.rate
}

// AddSample inserts a record into its endpoint's reservoir. Below capacity
// the record is appended; at capacity it replaces a uniformly random slot
// with probability cap/seen, so every record seen in the window has equal
// retention probability regardless of arrival order.
func (s *AdaptiveSampler) AddSample(rec model.TrafficRecord) {
	buf := s.buffer(Key(rec.Method, rec.Endpoint))

	buf.mu.Lock()
	defer buf.mu.Unlock()
	buf.seen++
	if len(buf.records) < s.maxPerEndpoint {
		buf.records = append(buf.records, rec)
		s.metrics.samplesAdded.Inc()
		return
	}
	if j := rand.IntN(buf.seen); j < s.maxPerEndpoint {
		buf.records[j] = rec
		s.metrics.samplesReplaced.Inc()
	}
}

func (s *AdaptiveSampler) buffer(key string) *endpointBuffer {
	s.mu.RLock()
	buf := s.buffers[key]
	s.mu.RUnlock()
	if buf != nil {
		return buf
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if buf = s.buffers[key]; buf == nil {
		buf = &endpointBuffer{}
		s.buffers[key] = buf
	}
	return buf
}

// Samples returns a copy of the buffered records for one endpoint/method
// pair, or all buffered records when both arguments are empty.
func (s *AdaptiveSampler) Samples(endpoint, method string) []model.TrafficRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if endpoint != "" || method != "" {
		buf := s.buffers[Key(method, endpoint)]
		if buf == nil {
			return nil
		}
		buf.mu.Lock()
		defer buf.mu.Unlock()
		return append([]model.TrafficRecord(nil), buf.records...)
	}

	var all []model.TrafficRecord
	for _, buf := range s.buffers {
		buf.mu.Lock()
		all = append(all, buf.records...)
		buf.mu.Unlock()
	}
	return all
}

// Endpoints returns the sorted buffer keys observed in the current window.
func (s *AdaptiveSampler) Endpoints() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.buffers))
	for key := range s.buffers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// WindowInfo describes the current sampling window.
type WindowInfo struct {
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	WindowMinutes int       `json:"window_minutes"`
	TotalSamples  int       `json:"total_samples"`
	Endpoints     int       `json:"endpoints_observed"`
}

// WindowInfo returns statistics about the current window.
func (s *AdaptiveSampler) WindowInfo() WindowInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := WindowInfo{
		WindowStart:   s.windowStart,
		WindowEnd:     s.now(),
		WindowMinutes: s.windowMinutes,
		Endpoints:     len(s.buffers),
	}
	for _, buf := range s.buffers {
		buf.mu.Lock()
		info.TotalSamples += len(buf.records)
		buf.mu.Unlock()
	}
	return info
}

// ShouldRotate reports whether the current window has exceeded its
// configured duration.
func (s *AdaptiveSampler) ShouldRotate() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now().Sub(s.windowStart) > time.Duration(s.windowMinutes)*time.Minute
}

// RotateWindow returns an immutable snapshot of every buffer and atomically
// resets them. Snapshot and clear happen under each buffer's own lock, so a
// concurrent AddSample on the same key lands wholly in the old window or
// wholly in the new one.
func (s *AdaptiveSampler) RotateWindow() WindowSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	snap := WindowSnapshot{
		Samples:     make(map[string][]model.TrafficRecord, len(s.buffers)),
		WindowStart: s.windowStart,
		WindowEnd:   now,
		Endpoints:   len(s.buffers),
	}
	for key, buf := range s.buffers {
		buf.mu.Lock()
		if len(buf.records) > 0 {
			snap.Samples[key] = append([]model.TrafficRecord(nil), buf.records...)
			snap.TotalSamples += len(buf.records)
		}
		buf.records = nil
		buf.seen = 0
		buf.mu.Unlock()
	}

	s.buffers = make(map[string]*endpointBuffer)
	s.windowStart = now
	s.logger.Info("rotated sampling window",
		zap.Int("total_samples", snap.TotalSamples),
		zap.Int("endpoints", snap.Endpoints),
	)
	return snap
}

func clampRate(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
