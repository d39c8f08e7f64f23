package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/momentum/internal/batch"
	"github.com/wonny/momentum/internal/cache"
	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/internal/metrics"
	"github.com/wonny/momentum/internal/provider"
	"github.com/wonny/momentum/internal/scoring"
	"github.com/wonny/momentum/internal/service"
	"github.com/wonny/momentum/internal/store"
	"github.com/wonny/momentum/internal/watchlist"
	"github.com/wonny/momentum/pkg/config"
	"github.com/wonny/momentum/pkg/database"
	"github.com/wonny/momentum/pkg/httputil"
	"github.com/wonny/momentum/pkg/logger"
	"github.com/wonny/momentum/pkg/redis"
)

// app holds every wired component for one command run
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics

	db    *database.DB
	redis *redis.Client

	source    *provider.Source
	memory    *cache.MemoryCache
	writeBack *cache.WriteBack
	svc       *service.MomentumService
}

// loadConfig applies global flag overrides and loads the environment
func loadConfig() (*config.Config, error) {
	if env != "" {
		os.Setenv("ENV", env)
	}
	if verbose {
		os.Setenv("LOG_LEVEL", "debug")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// bootstrap wires storage, provider, cache tiers and the service
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: logger.New(cfg)}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	a.redis, err = redis.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// nil stays nil: a typed nil pointer must never reach the interface
	var scoreStore contracts.ScoreStore
	switch cfg.Store.Backend {
	case "postgres":
		a.db, err = database.New(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		scoreStore = store.NewPostgresStore(a.db.Pool)
	case "redis":
		scoreStore = store.NewRedisStore(a.redis)
	}

	limiter := a.providerLimiter()
	chartHTTP := httputil.NewWithTimeout(a.log, cfg.Provider.FetchTimeout).WithLimiter(limiter)
	pageHTTP := httputil.NewWithTimeout(a.log, cfg.Provider.FetchTimeout).WithLimiter(limiter)

	a.source = provider.NewSource(
		cfg.Provider,
		provider.NewChartClient(chartHTTP, cfg.Provider.ChartBaseURL, a.log),
		provider.NewFundamentalsScraper(pageHTTP, cfg.Provider.FundamentalsBaseURL, a.log),
		a.log,
	)

	var shared *redis.Cache
	if a.redis.Enabled() {
		shared = redis.NewCache(a.redis)
	}
	bench := cache.NewBenchmarkCache(a.source, shared, cfg.Provider.BenchmarkTicker, cfg.Provider.LookbackDays, cfg.Cache.BenchmarkTTL, a.log)

	a.memory = cache.NewMemoryCache(cfg.Cache.TTL)
	if scoreStore != nil {
		a.writeBack = cache.NewWriteBack(scoreStore, cache.WriteBackConfig{
			QueueSize: cfg.Cache.WriteQueueSize,
			Workers:   cfg.Cache.WriteWorkers,
			Timeout:   cfg.Cache.WriteTimeout,
		}, a.log, a.metrics)
	}

	engine := scoring.NewEngine(a.log)
	tiered := cache.NewTieredCache(cache.Tiers{
		Memory:    a.memory,
		Store:     scoreStore,
		Source:    a.source,
		Engine:    engine,
		Benchmark: bench,
		WriteBack: a.writeBack,
	}, cache.Options{
		LookbackDays: cfg.Provider.LookbackDays,
		FetchTimeout: cfg.Provider.FetchTimeout,
		Workers:      cfg.Cache.Tier3Workers,
	}, a.log, a.metrics)

	a.svc = service.New(service.Deps{
		Cache:     tiered,
		Batch:     batch.NewCoordinator(tiered, a.log, a.metrics),
		Source:    a.source,
		Engine:    engine,
		Benchmark: bench,
	}, service.Options{
		LookbackDays: cfg.Provider.LookbackDays,
		FetchTimeout: cfg.Provider.FetchTimeout,
		Batch:        batchDefaults(cfg),
	}, a.log)

	a.log.WithFields(map[string]interface{}{
		"store":     cfg.Store.Backend,
		"redis":     a.redis.Enabled(),
		"benchmark": cfg.Provider.BenchmarkTicker,
	}).Debug("Momentum service wired")

	return a, nil
}

// providerLimiter shares the request budget across processes when Redis is on
func (a *app) providerLimiter() httputil.Waiter {
	rps := a.cfg.Provider.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	if a.redis.Enabled() {
		return redis.NewRateLimiter(a.redis).For(redis.ProviderRateLimit("provider", rps))
	}
	return rate.NewLimiter(rate.Limit(rps), rps)
}

// Close drains queued writes, then releases connections
func (a *app) Close() {
	if a.writeBack != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := a.writeBack.Close(ctx); err != nil {
			a.log.WithError(err).Warn("Write-back queue not fully drained")
		}
		cancel()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

func batchDefaults(cfg *config.Config) batch.Options {
	return batch.Options{
		MaxWorkers:  cfg.Batch.MaxWorkers,
		BatchSize:   cfg.Batch.BatchSize,
		ItemTimeout: cfg.Batch.ItemTimeout,
	}
}

// resolveTickers merges positional args with an optional watchlist file
func resolveTickers(args []string, watchlistPath string) ([]string, error) {
	tickers := append([]string(nil), args...)
	if watchlistPath != "" {
		wl, err := watchlist.Load(watchlistPath)
		if err != nil {
			return nil, err
		}
		tickers = append(tickers, wl.Tickers...)
	}

	valid, invalid := contracts.NormalizeTickers(tickers)
	if len(invalid) > 0 {
		PrintWarning(fmt.Sprintf("Ignoring invalid tickers: %v", invalid))
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no tickers given: pass symbols or --watchlist")
	}
	return valid, nil
}
