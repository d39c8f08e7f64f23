package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/pkg/logger"
	"github.com/wonny/momentum/pkg/redis"
)

// BenchmarkCache keeps the benchmark series used by relative momentum.
// Process memory first, then Redis (when enabled), then the live source.
type BenchmarkCache struct {
	source   contracts.LiveDataSource
	shared   *redis.Cache // nil = process-local only
	ticker   string
	lookback int
	ttl      time.Duration
	logger   *logger.Logger
	now      func() time.Time

	// fetchedAt is zero until the first answer; series stays nil for an
	// unknown symbol so the negative result is also kept for the TTL
	mu        sync.Mutex
	series    contracts.Series
	fetchedAt time.Time

	group singleflight.Group
}

// NewBenchmarkCache creates a benchmark cache for ticker; shared may be nil
func NewBenchmarkCache(source contracts.LiveDataSource, shared *redis.Cache, ticker string, lookback int, ttl time.Duration, log *logger.Logger) *BenchmarkCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &BenchmarkCache{
		source:   source,
		shared:   shared,
		ticker:   ticker,
		lookback: lookback,
		ttl:      ttl,
		logger:   log.Component("benchmark").WithTicker(ticker),
		now:      time.Now,
	}
}

// Ticker returns the benchmark symbol
func (b *BenchmarkCache) Ticker() string {
	return b.ticker
}

// Get returns the benchmark series; nil with no error when the provider
// does not know the symbol.
func (b *BenchmarkCache) Get(ctx context.Context) (contracts.Series, error) {
	if s, ok := b.local(); ok {
		return s, nil
	}

	v, err, _ := b.group.Do(b.ticker, func() (interface{}, error) {
		return b.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(contracts.Series), nil
}

// Invalidate forgets the process-local copy
func (b *BenchmarkCache) Invalidate() {
	b.mu.Lock()
	b.series = nil
	b.fetchedAt = time.Time{}
	b.mu.Unlock()
}

func (b *BenchmarkCache) local() (contracts.Series, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fetchedAt.IsZero() || b.now().Sub(b.fetchedAt) >= b.ttl {
		return nil, false
	}
	return b.series, true
}

func (b *BenchmarkCache) remember(s contracts.Series) {
	b.mu.Lock()
	b.series = s
	b.fetchedAt = b.now()
	b.mu.Unlock()
}

func (b *BenchmarkCache) load(ctx context.Context) (contracts.Series, error) {
	key := redis.BenchmarkKey(b.ticker)

	if b.shared != nil {
		var s contracts.Series
		found, err := b.shared.Get(ctx, key, &s)
		if err != nil {
			b.logger.WithError(err).Debug("Shared benchmark read failed")
		}
		if err == nil && found && len(s) > 0 {
			b.remember(s)
			return s, nil
		}
	}

	data, err := b.source.Fetch(ctx, b.ticker, b.lookback)
	if err != nil {
		return nil, fmt.Errorf("fetch benchmark %s: %w", b.ticker, err)
	}
	if !data.Found || len(data.Series) == 0 {
		b.logger.Warn("Benchmark unknown to the provider, relative momentum stays neutral until the TTL expires")
		b.remember(nil)
		return nil, nil
	}

	b.remember(data.Series)
	if b.shared != nil {
		if err := b.shared.Set(ctx, key, data.Series, b.ttl); err != nil {
			b.logger.WithError(err).Debug("Shared benchmark write failed")
		}
	}
	return data.Series, nil
}
