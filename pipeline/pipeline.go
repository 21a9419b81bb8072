// Package pipeline sequences the engine stages into one statically ordered
// run: sample, mask, observe, parse, compare, classify, assess impact. It
// replaces run-time planning with a fixed order; every stage is also usable
// on its own.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/achuajays/schemasentry/contract"
	"github.com/achuajays/schemasentry/drift"
	"github.com/achuajays/schemasentry/impact"
	"github.com/achuajays/schemasentry/internal/logging"
	"github.com/achuajays/schemasentry/model"
	"github.com/achuajays/schemasentry/observer"
	"github.com/achuajays/schemasentry/sampler"
)

const (
	defaultSampleRate  = 0.1
	defaultConcurrency = 4
)

// Config holds pipeline options. Zero values take the defaults.
type Config struct {
	// SampleRate is the fraction of the incoming batch analyzed, in (0, 1].
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate"`
	// MaskPII scrubs sensitive data from sampled records before inference.
	MaskPII bool `yaml:"mask_pii" json:"mask_pii"`
	// MaxDepth bounds payload and schema recursion.
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
	// Concurrency bounds the per-endpoint observation fan-out.
	Concurrency int `yaml:"concurrency" json:"concurrency"`
	// ContractCacheSize bounds the parsed-contract cache.
	ContractCacheSize int `yaml:"contract_cache_size" json:"contract_cache_size"`
	// LogLevel builds a logger when none is injected. Empty means no-op.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// Input is one pipeline invocation's worth of data.
type Input struct {
	Records   []model.TrafficRecord
	SpecText  []byte
	UsageLogs []model.UsageLog
}

// Pipeline runs the full drift analysis. Safe for concurrent use.
type Pipeline struct {
	cache       *contract.Cache
	observer    *observer.Observer
	rate        float64
	maskPII     bool
	concurrency int
	logger      *zap.Logger
}

// New creates a Pipeline from config, applying defaults for zero values. A
// nil logger is replaced with a no-op logger.
func New(cfg Config, logger *zap.Logger) (*Pipeline, error) {
	if cfg.SampleRate <= 0 || cfg.SampleRate > 1 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if logger == nil && cfg.LogLevel != "" {
		var err error
		logger, err = logging.New(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	parser := contract.New(contract.Config{MaxDepth: cfg.MaxDepth})
	cache, err := contract.NewCache(parser, cfg.ContractCacheSize)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cache:       cache,
		observer:    observer.New(observer.Config{MaxDepth: cfg.MaxDepth}),
		rate:        cfg.SampleRate,
		maskPII:     cfg.MaskPII,
		concurrency: cfg.Concurrency,
		logger:      logger,
	}, nil
}

// Run executes the full pipeline over one input batch. An empty record
// batch yields a report with zero schemas and issues, not an error; only a
// structurally invalid declared document fails the run.
func (p *Pipeline) Run(ctx context.Context, in Input) (*model.AnalysisReport, error) {
	report := &model.AnalysisReport{
		ReportID:    uuid.NewString(),
		GeneratedAt: time.Now(),
	}

	var doc *contract.Document
	if len(in.SpecText) > 0 {
		var err error
		doc, err = p.cache.Parse(in.SpecText)
		if err != nil {
			return nil, err
		}
		for _, w := range doc.Warnings {
			p.logger.Warn("contract warning", zap.String("ref", w.Ref), zap.String("reason", w.Reason))
		}
	}

	sampled, stats, err := sampler.Sample(in.Records, p.rate, p.maskPII)
	if err != nil {
		return nil, err
	}
	p.logger.Info("sampled traffic batch",
		zap.Int("original", stats.OriginalCount),
		zap.Int("sampled", stats.SampleCount),
		zap.Float64("rate", stats.Rate),
		zap.Bool("pii_masked", stats.PIIMasked),
	)

	groups := groupRecords(sampled)

	var (
		mu      sync.Mutex
		schemas []model.ObservedSchema
		issues  []model.Issue
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, grp := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			schema, err := p.observer.Observe(grp.endpoint, grp.method, grp.records)
			if err != nil {
				// Reported condition, not a pipeline failure.
				p.logger.Warn("no observed schema",
					zap.String("endpoint", grp.endpoint),
					zap.String("method", grp.method),
					zap.Error(err),
				)
				return nil
			}
			var classified []model.Issue
			if doc != nil {
				classified = drift.Classify(drift.CompareEndpoint(schema, doc))
			}
			mu.Lock()
			schemas = append(schemas, *schema)
			issues = append(issues, classified...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(schemas, func(i, j int) bool {
		if schemas[i].Endpoint != schemas[j].Endpoint {
			return schemas[i].Endpoint < schemas[j].Endpoint
		}
		return schemas[i].Method < schemas[j].Method
	})
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Risk.Rank() != issues[j].Risk.Rank() {
			return issues[i].Risk.Rank() < issues[j].Risk.Rank()
		}
		return issues[i].Endpoint < issues[j].Endpoint
	})
	report.Schemas = schemas
	report.Issues = issues

	if len(in.UsageLogs) > 0 {
		usages := p.mapAffectedClients(issues, in.UsageLogs)
		assessment := impact.ScoreImpact(issues, usages)
		recs, action := impact.Recommend(assessment, issues)
		assessment.RecommendedAction = action
		report.Impact = &assessment
		report.Recommendations = recs
		p.logger.Info("impact assessed",
			zap.Int("blast_radius", assessment.BlastRadius),
			zap.Int("critical_clients", len(assessment.CriticalClients)),
			zap.Float64("confidence", assessment.Confidence),
		)
	}

	report.RecomputeSummary()
	return report, nil
}

// mapAffectedClients maps usage for every endpoint with at least one issue
// and merges the per-endpoint client lists, deduplicating by client id.
func (p *Pipeline) mapAffectedClients(issues []model.Issue, logs []model.UsageLog) []model.ClientUsage {
	endpoints := make(map[string]bool)
	for _, is := range issues {
		endpoints[is.Endpoint] = true
	}

	merged := make(map[string]model.ClientUsage)
	for endpoint := range endpoints {
		for _, cu := range impact.MapClientUsage(endpoint, logs) {
			existing, ok := merged[cu.ClientID]
			if !ok {
				merged[cu.ClientID] = cu
				continue
			}
			existing.RequestCount += cu.RequestCount
			existing.EndpointsUsed = mergeSorted(existing.EndpointsUsed, cu.EndpointsUsed)
			existing.MethodsUsed = mergeSorted(existing.MethodsUsed, cu.MethodsUsed)
			if existing.LastSeen == nil || (cu.LastSeen != nil && cu.LastSeen.After(*existing.LastSeen)) {
				existing.LastSeen = cu.LastSeen
			}
			merged[cu.ClientID] = existing
		}
	}

	usages := make([]model.ClientUsage, 0, len(merged))
	for _, cu := range merged {
		usages = append(usages, cu)
	}
	sort.Slice(usages, func(i, j int) bool {
		if usages[i].RequestCount != usages[j].RequestCount {
			return usages[i].RequestCount > usages[j].RequestCount
		}
		return usages[i].ClientID < usages[j].ClientID
	})
	return usages
}

type group struct {
	endpoint string
	method   string
	records  []model.TrafficRecord
}

// groupRecords splits a sampled batch into per-endpoint/method groups in a
// deterministic order.
func groupRecords(records []model.TrafficRecord) []group {
	byKey := make(map[string]*group)
	var keys []string
	for _, rec := range records {
		key := sampler.Key(rec.Method, rec.Endpoint)
		grp := byKey[key]
		if grp == nil {
			grp = &group{endpoint: rec.Endpoint, method: rec.Method}
			byKey[key] = grp
			keys = append(keys, key)
		}
		grp.records = append(grp.records, rec)
	}
	sort.Strings(keys)
	groups := make([]group, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, *byKey[key])
	}
	return groups
}

func mergeSorted(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		set[s] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
