package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/internal/metrics"
	"github.com/wonny/momentum/internal/scoring"
	"github.com/wonny/momentum/pkg/logger"
)

// Tiers wires the collaborators of the tiered cache.
// Store, Benchmark and WriteBack are optional.
type Tiers struct {
	Memory    *MemoryCache
	Store     contracts.ScoreStore
	Source    contracts.LiveDataSource
	Engine    *scoring.Engine
	Benchmark *BenchmarkCache
	WriteBack *WriteBack
}

// Options tunes tier-3 computation
type Options struct {
	LookbackDays int
	FetchTimeout time.Duration
	Workers      int
}

// TieredCache resolves scores through memory, the durable store and live
// recomputation, promoting hits toward tier 1.
// ⭐ SSOT: 3-tier 점수 조회는 여기서만
type TieredCache struct {
	tiers   Tiers
	opts    Options
	group   singleflight.Group
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewTieredCache creates a tiered cache
func NewTieredCache(tiers Tiers, opts Options, log *logger.Logger, m *metrics.Metrics) *TieredCache {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 400
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	return &TieredCache{
		tiers:   tiers,
		opts:    opts,
		logger:  log.Component("cache"),
		metrics: m,
		now:     time.Now,
	}
}

// Memory exposes the tier-1 admin interface
func (c *TieredCache) Memory() contracts.ScoreCache {
	return c.tiers.Memory
}

// WriteBack returns the write-back queue, nil when persistence is off
func (c *TieredCache) WriteBack() *WriteBack {
	return c.tiers.WriteBack
}

// HasStore reports whether tier 2 is configured
func (c *TieredCache) HasStore() bool {
	return c.tiers.Store != nil
}

// GetMany resolves tickers through all tiers; failed tickers are absent
func (c *TieredCache) GetMany(ctx context.Context, tickers []string) map[string]contracts.MomentumScore {
	found, _ := c.Resolve(ctx, tickers)
	return found
}

// Resolve is GetMany that also reports the per-ticker failures
func (c *TieredCache) Resolve(ctx context.Context, tickers []string) (map[string]contracts.MomentumScore, map[string]error) {
	found, missing := c.GetCachedOnly(ctx, tickers)
	if len(missing) == 0 {
		return found, map[string]error{}
	}

	live, failures := c.compute(ctx, missing)
	for t, s := range live {
		found[t] = s
	}
	return found, failures
}

// GetCachedOnly consults tiers 1 and 2 only
func (c *TieredCache) GetCachedOnly(ctx context.Context, tickers []string) (map[string]contracts.MomentumScore, []string) {
	found := make(map[string]contracts.MomentumScore, len(tickers))
	missing := make([]string, 0, len(tickers))

	for _, t := range tickers {
		if _, dup := found[t]; dup {
			continue
		}
		if s, ok := c.tiers.Memory.Get(t); ok {
			found[t] = s
			c.metrics.Lookup(contracts.TierMemory.String(), true)
			continue
		}
		c.metrics.Lookup(contracts.TierMemory.String(), false)
		missing = append(missing, t)
	}
	missing = dedupe(missing)

	if len(missing) == 0 || c.tiers.Store == nil {
		return found, missing
	}

	promoted := c.durable(ctx, missing)
	if len(promoted) == 0 {
		return found, missing
	}

	still := missing[:0]
	for _, t := range missing {
		if s, ok := promoted[t]; ok {
			found[t] = s
			continue
		}
		still = append(still, t)
	}

	c.metrics.SetMemoryEntries(c.tiers.Memory.Size())
	return found, still
}

// Refresh recomputes tickers from live data regardless of cached copies
func (c *TieredCache) Refresh(ctx context.Context, tickers []string) (map[string]contracts.MomentumScore, map[string]error) {
	return c.compute(ctx, dedupe(tickers))
}

// ComputeLive runs tier 3 only, for callers that already ran GetCachedOnly
// for the same tickers.
func (c *TieredCache) ComputeLive(ctx context.Context, tickers []string) (map[string]contracts.MomentumScore, map[string]error) {
	return c.compute(ctx, dedupe(tickers))
}

// durable runs the two batched tier-2 reads and promotes hits to tier 1.
// A store failure degrades to an empty result.
func (c *TieredCache) durable(ctx context.Context, tickers []string) map[string]contracts.MomentumScore {
	records, err := c.tiers.Store.LatestScores(ctx, tickers)
	if err != nil {
		c.logger.WithError(err).WithField("tickers", len(tickers)).Warn("Durable store unavailable, falling back to live data")
		return nil
	}
	if len(records) == 0 {
		for range tickers {
			c.metrics.Lookup(contracts.TierDurable.String(), false)
		}
		return nil
	}

	hits := make([]string, 0, len(records))
	for t := range records {
		hits = append(hits, t)
	}

	prices, err := c.tiers.Store.LatestPrices(ctx, hits)
	if err != nil {
		c.logger.WithError(err).Warn("Latest prices unavailable, using score row prices")
		prices = nil
	}

	out := make(map[string]contracts.MomentumScore, len(records))
	for _, t := range tickers {
		rec, ok := records[t]
		if !ok {
			c.metrics.Lookup(contracts.TierDurable.String(), false)
			continue
		}
		c.metrics.Lookup(contracts.TierDurable.String(), true)

		s := rec.Score(prices[t].Close, rec.AsOfDate)
		c.tiers.Memory.Set(s)
		out[t] = s
	}

	c.logger.WithFields(map[string]interface{}{
		"requested": len(tickers),
		"promoted":  len(out),
	}).Debug("Promoted durable scores")

	return out
}

// compute fetches and scores tickers concurrently; failures stay per ticker
func (c *TieredCache) compute(ctx context.Context, tickers []string) (map[string]contracts.MomentumScore, map[string]error) {
	found := make(map[string]contracts.MomentumScore, len(tickers))
	failures := make(map[string]error)
	if len(tickers) == 0 {
		return found, failures
	}

	benchmark := c.benchmark(ctx)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(c.opts.Workers)

	for _, t := range tickers {
		g.Go(func() error {
			s, err := c.computeOne(ctx, t, benchmark)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[t] = err
				return nil
			}
			found[t] = s
			return nil
		})
	}
	_ = g.Wait()

	c.metrics.SetMemoryEntries(c.tiers.Memory.Size())

	if len(failures) > 0 {
		c.logger.WithFields(map[string]interface{}{
			"requested": len(tickers),
			"failed":    len(failures),
		}).Warn("Live computation failed for some tickers")
	}
	return found, failures
}

func (c *TieredCache) benchmark(ctx context.Context) contracts.Series {
	if c.tiers.Benchmark == nil {
		return nil
	}
	s, err := c.tiers.Benchmark.Get(ctx)
	if err != nil {
		c.logger.WithError(err).WithField("benchmark", c.tiers.Benchmark.Ticker()).
			Warn("Benchmark unavailable, relative momentum will be neutral")
		return nil
	}
	return s
}

// computeOne runs fetch and score for one ticker; concurrent requests for
// the same ticker share a single computation.
func (c *TieredCache) computeOne(ctx context.Context, ticker string, benchmark contracts.Series) (contracts.MomentumScore, error) {
	v, err, _ := c.group.Do(ticker, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
		defer cancel()

		start := time.Now()
		data, err := c.tiers.Source.Fetch(fetchCtx, ticker, c.opts.LookbackDays)
		elapsed := time.Since(start)

		if err == nil && fetchCtx.Err() != nil {
			err = fetchCtx.Err()
		}
		if err != nil {
			c.metrics.Live(metrics.LiveFailure, elapsed)
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("fetch timed out after %s: %w", c.opts.FetchTimeout, err)
			}
			return nil, contracts.NewProviderError(ticker, err)
		}

		in := contracts.ScoreInput{
			Ticker:    ticker,
			Benchmark: benchmark,
			AsOf:      c.now(),
		}
		outcome := metrics.LiveNotFound
		if data != nil && data.Found {
			in.Series = data.Series
			in.Fundamentals = data.Fundamentals
			outcome = metrics.LiveSuccess
		}

		s := c.tiers.Engine.Score(in)
		c.metrics.Live(outcome, elapsed)

		c.tiers.Memory.Set(s)
		if c.tiers.WriteBack != nil {
			c.tiers.WriteBack.Enqueue(s)
		}
		return s, nil
	})
	if err != nil {
		return contracts.MomentumScore{}, err
	}

	s := v.(contracts.MomentumScore)
	s.Source = contracts.TierLive
	return s, nil
}

func dedupe(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := tickers[:0:0]
	for _, t := range tickers {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
