package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/momentum/internal/batch"
	"github.com/wonny/momentum/internal/cache"
	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/internal/scoring"
	"github.com/wonny/momentum/pkg/logger"
)

// Deps are the collaborators of the service; Benchmark is optional
type Deps struct {
	Cache     *cache.TieredCache
	Batch     *batch.Coordinator
	Source    contracts.LiveDataSource
	Engine    *scoring.Engine
	Benchmark *cache.BenchmarkCache
}

// Options carries defaults applied to every call
type Options struct {
	LookbackDays int
	FetchTimeout time.Duration
	Batch        batch.Options
}

// Stats is the admin view of the service
type Stats struct {
	Cache         contracts.CacheStats `json:"cache"`
	HitRatio      float64              `json:"hit_ratio"`
	PendingWrites int                  `json:"pending_writes"`
	DurableStore  bool                 `json:"durable_store"`
	Benchmark     string               `json:"benchmark,omitempty"`
	Breaker       string               `json:"breaker,omitempty"`
}

type breakerReporter interface {
	BreakerState() string
}

// MomentumService is the entry point for every score consumer
// ⭐ SSOT: 외부 노출 API는 여기서만
type MomentumService struct {
	deps   Deps
	opts   Options
	logger *logger.Logger
	now    func() time.Time
}

// New creates a momentum service
func New(deps Deps, opts Options, log *logger.Logger) *MomentumService {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 400
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	return &MomentumService{
		deps:   deps,
		opts:   opts,
		logger: log.Component("service"),
		now:    time.Now,
	}
}

// GetScore resolves one ticker through every tier
func (s *MomentumService) GetScore(ctx context.Context, ticker string) (contracts.MomentumScore, error) {
	t, err := contracts.NormalizeTicker(ticker)
	if err != nil {
		return contracts.MomentumScore{}, err
	}

	found, failures := s.deps.Cache.Resolve(ctx, []string{t})
	if score, ok := found[t]; ok {
		return score, nil
	}
	if err := failures[t]; err != nil {
		return contracts.MomentumScore{}, err
	}
	return contracts.MomentumScore{}, fmt.Errorf("%s: no score resolved", t)
}

// GetScores resolves many tickers; invalid and failed tickers are absent
func (s *MomentumService) GetScores(ctx context.Context, tickers []string) map[string]contracts.MomentumScore {
	valid := s.normalize(tickers)
	if len(valid) == 0 {
		return map[string]contracts.MomentumScore{}
	}
	return s.deps.Cache.GetMany(ctx, valid)
}

// GetCachedScores consults tiers 1 and 2 only and reports what is missing
func (s *MomentumService) GetCachedScores(ctx context.Context, tickers []string) (map[string]contracts.MomentumScore, []string) {
	valid := s.normalize(tickers)
	if len(valid) == 0 {
		return map[string]contracts.MomentumScore{}, nil
	}
	return s.deps.Cache.GetCachedOnly(ctx, valid)
}

// BatchCompute runs the batch coordinator with service defaults filled in
func (s *MomentumService) BatchCompute(ctx context.Context, tickers []string, opts batch.Options) *batch.Result {
	return s.deps.Batch.Compute(ctx, tickers, s.batchOptions(opts))
}

// TopN returns the n best tickers by field (composite when empty)
func (s *MomentumService) TopN(ctx context.Context, tickers []string, n int, field string) ([]contracts.MomentumScore, error) {
	f, err := batch.ParseField(field)
	if err != nil {
		return nil, err
	}
	top, _, err := s.deps.Batch.TopN(ctx, tickers, n, f, s.batchOptions(batch.Options{}))
	return top, err
}

// Compare times a sequential run against a concurrent one
func (s *MomentumService) Compare(ctx context.Context, tickers []string, opts batch.Options) *batch.Comparison {
	return s.deps.Batch.Compare(ctx, tickers, s.batchOptions(opts))
}

// Refresh recomputes tickers from live data, replacing cached copies
func (s *MomentumService) Refresh(ctx context.Context, tickers []string) (map[string]contracts.MomentumScore, map[string]error) {
	valid := s.normalize(tickers)
	if len(valid) == 0 {
		return map[string]contracts.MomentumScore{}, map[string]error{}
	}
	return s.deps.Cache.Refresh(ctx, valid)
}

// Invalidate drops a ticker or glob pattern from tier 1.
// Matching the benchmark symbol also drops the cached benchmark series.
func (s *MomentumService) Invalidate(tickerOrPattern string) int {
	removed := s.deps.Cache.Memory().Invalidate(tickerOrPattern)

	if b := s.deps.Benchmark; b != nil {
		target := strings.ToUpper(strings.TrimSpace(tickerOrPattern))
		if target == "*" || target == b.Ticker() {
			b.Invalidate()
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"target":  tickerOrPattern,
		"removed": removed,
	}).Info("Cache invalidated")
	return removed
}

// Stats reports tier-1 counters, queued writes and provider health
func (s *MomentumService) Stats() Stats {
	st := Stats{
		Cache:        s.deps.Cache.Memory().Stats(),
		DurableStore: s.deps.Cache.HasStore(),
	}
	st.HitRatio = st.Cache.HitRatio()
	if wb := s.deps.Cache.WriteBack(); wb != nil {
		st.PendingWrites = wb.Pending()
	}
	if s.deps.Benchmark != nil {
		st.Benchmark = s.deps.Benchmark.Ticker()
	}
	if br, ok := s.deps.Source.(breakerReporter); ok {
		st.Breaker = br.BreakerState()
	}
	return st
}

// Explain fetches live data and returns the full indicator breakdown.
// It bypasses every cache tier and stores nothing.
func (s *MomentumService) Explain(ctx context.Context, ticker string) (scoring.Breakdown, error) {
	t, err := contracts.NormalizeTicker(ticker)
	if err != nil {
		return scoring.Breakdown{}, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	data, err := s.deps.Source.Fetch(fetchCtx, t, s.opts.LookbackDays)
	if err != nil {
		return scoring.Breakdown{}, contracts.NewProviderError(t, err)
	}

	in := contracts.ScoreInput{Ticker: t, AsOf: s.now()}
	if data != nil && data.Found {
		in.Series = data.Series
		in.Fundamentals = data.Fundamentals
	}
	if s.deps.Benchmark != nil {
		bench, err := s.deps.Benchmark.Get(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("Benchmark unavailable, relative momentum will be neutral")
		}
		in.Benchmark = bench
	}

	return s.deps.Engine.Explain(in), nil
}

func (s *MomentumService) batchOptions(opts batch.Options) batch.Options {
	d := s.opts.Batch
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = d.MaxWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = d.BatchSize
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = d.ItemTimeout
	}
	return opts
}

func (s *MomentumService) normalize(tickers []string) []string {
	valid, invalid := contracts.NormalizeTickers(tickers)
	if len(invalid) > 0 {
		s.logger.WithField("invalid", invalid).Warn("Dropping invalid tickers")
	}
	return valid
}
