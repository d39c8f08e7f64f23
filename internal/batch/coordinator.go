package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/internal/metrics"
	"github.com/wonny/momentum/pkg/logger"
)

const (
	DefaultMaxWorkers  = 10
	MaxWorkersCap      = 20
	DefaultBatchSize   = 20
	DefaultItemTimeout = 30 * time.Second
)

// Options controls one batch run
type Options struct {
	MaxWorkers  int
	BatchSize   int
	ItemTimeout time.Duration
	// Refresh skips tiers 1 and 2 and recomputes every ticker
	Refresh bool
}

func (o Options) withDefaults() Options {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = DefaultMaxWorkers
	}
	o.MaxWorkers = min(o.MaxWorkers, MaxWorkersCap)
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = DefaultItemTimeout
	}
	return o
}

// Resolver is the slice of the tiered cache the coordinator drives.
// Tiers 1 and 2 are read once per chunk through GetCachedOnly; workers only
// reach tier 3.
type Resolver interface {
	GetCachedOnly(ctx context.Context, tickers []string) (map[string]contracts.MomentumScore, []string)
	ComputeLive(ctx context.Context, tickers []string) (map[string]contracts.MomentumScore, map[string]error)
	Refresh(ctx context.Context, tickers []string) (map[string]contracts.MomentumScore, map[string]error)
}

// Coordinator fans a ticker list out over a bounded worker pool
// ⭐ SSOT: 배치 점수 계산은 여기서만
type Coordinator struct {
	resolver Resolver
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewCoordinator creates a batch coordinator
func NewCoordinator(resolver Resolver, log *logger.Logger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		resolver: resolver,
		logger:   log.Component("batch"),
		metrics:  m,
	}
}

type itemResult struct {
	ticker  string
	score   contracts.MomentumScore
	err     error
	elapsed time.Duration
}

// Compute scores every valid ticker and returns one outcome per ticker.
// Invalid tickers are dropped; a failed ticker never affects the others.
func (c *Coordinator) Compute(ctx context.Context, tickers []string, opts Options) *Result {
	opts = opts.withDefaults()

	valid, invalid := contracts.NormalizeTickers(tickers)
	if len(invalid) > 0 {
		c.logger.WithField("invalid", invalid).Warn("Dropping invalid tickers")
	}

	result := newResult(valid, opts.MaxWorkers)
	log := c.logger.WithFields(map[string]interface{}{
		"batch_id": result.ID.String(),
		"tickers":  len(valid),
		"workers":  opts.MaxWorkers,
	})
	log.Info("Batch started")

	for start := 0; start < len(valid); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(valid))
		c.runChunk(ctx, result, valid[start:end], opts)
	}

	result.finish()
	c.metrics.Batch(result.Elapsed, result.StateCounts())

	log.WithFields(map[string]interface{}{
		"succeeded":  result.Succeeded,
		"cache_hits": result.CacheHits,
		"failed":     result.Failed,
		"elapsed":    result.Elapsed.String(),
	}).Info("Batch completed")

	return result
}

// runChunk resolves cached tickers in one pass, then computes the rest on the pool
func (c *Coordinator) runChunk(ctx context.Context, result *Result, chunk []string, opts Options) {
	pending := chunk
	if !opts.Refresh {
		found, missing := c.resolver.GetCachedOnly(ctx, chunk)
		for t, s := range found {
			if _, ok := result.Outcomes[t]; !ok {
				continue
			}
			c.advance(result, t, StateCacheHit)
			o := result.Outcomes[t]
			o.Score = &s
			o.Cached = true
			result.Outcomes[t] = o
			c.advance(result, t, StateSuccess)
		}
		pending = missing
	}
	if len(pending) == 0 {
		return
	}

	for _, t := range pending {
		c.advance(result, t, StateComputing)
	}

	workers := min(opts.MaxWorkers, len(pending))
	jobs := make(chan string, len(pending))
	results := make(chan itemResult, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go c.worker(ctx, &wg, jobs, results, opts)
	}

	for _, t := range pending {
		jobs <- t
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		o := result.Outcomes[r.ticker]
		o.Elapsed = r.elapsed
		if r.err != nil {
			o.Err = r.err
			result.Outcomes[r.ticker] = o
			c.advance(result, r.ticker, StateFailed)
			c.logger.WithTicker(r.ticker).WithError(r.err).Warn("Batch item failed")
			continue
		}
		s := r.score
		o.Score = &s
		result.Outcomes[r.ticker] = o
		c.advance(result, r.ticker, StateSuccess)
	}
}

func (c *Coordinator) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan string, results chan<- itemResult, opts Options) {
	defer wg.Done()

	for ticker := range jobs {
		started := time.Now()
		if err := ctx.Err(); err != nil {
			results <- itemResult{ticker: ticker, err: err}
			continue
		}
		score, err := c.runItem(ctx, ticker, opts)
		results <- itemResult{ticker: ticker, score: score, err: err, elapsed: time.Since(started)}
	}
}

// runItem bounds one ticker by its own timeout and turns a panic into an error
func (c *Coordinator) runItem(ctx context.Context, ticker string, opts Options) (contracts.MomentumScore, error) {
	itemCtx, cancel := context.WithTimeout(ctx, opts.ItemTimeout)
	defer cancel()

	done := make(chan itemResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- itemResult{err: fmt.Errorf("panic computing %s: %v", ticker, r)}
			}
		}()
		score, err := c.resolveOne(itemCtx, ticker, opts.Refresh)
		done <- itemResult{score: score, err: err}
	}()

	select {
	case r := <-done:
		return r.score, r.err
	case <-itemCtx.Done():
		err := itemCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			return contracts.MomentumScore{}, fmt.Errorf("%s: item timeout after %s: %w", ticker, opts.ItemTimeout, err)
		}
		return contracts.MomentumScore{}, err
	}
}

func (c *Coordinator) resolveOne(ctx context.Context, ticker string, refresh bool) (contracts.MomentumScore, error) {
	var (
		found    map[string]contracts.MomentumScore
		failures map[string]error
	)
	if refresh {
		found, failures = c.resolver.Refresh(ctx, []string{ticker})
	} else {
		found, failures = c.resolver.ComputeLive(ctx, []string{ticker})
	}

	if s, ok := found[ticker]; ok {
		return s, nil
	}
	if err, ok := failures[ticker]; ok && err != nil {
		return contracts.MomentumScore{}, err
	}
	return contracts.MomentumScore{}, fmt.Errorf("%s: no score resolved", ticker)
}

func (c *Coordinator) advance(result *Result, ticker string, to State) {
	if err := result.transition(ticker, to); err != nil {
		c.logger.WithError(err).Error("Batch state transition rejected")
	}
}
