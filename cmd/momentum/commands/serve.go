package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/momentum/internal/api"
	"github.com/wonny/momentum/internal/api/handlers"
	"github.com/wonny/momentum/internal/scheduler"
	"github.com/wonny/momentum/internal/scheduler/jobs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the score API, metrics endpoint and refresh scheduler",
	Long: `Starts the HTTP server and the scheduler in one process.

Endpoints:
  GET    /healthz               - Health check (store, redis)
  GET    /metrics               - Prometheus metrics
  GET    /api/scores/{ticker}   - One score
  GET    /api/scores?tickers=   - Many scores (cached=true: tiers 1-2 only)
  POST   /api/batch             - Batch compute
  GET    /api/top?tickers=&n=   - Top-N ranking
  GET    /api/explain/{ticker}  - Indicator breakdown
  GET    /api/stats             - Cache statistics
  DELETE /api/cache/{pattern}   - Invalidate tier 1

Scheduled jobs:
  momentum_refresh - REFRESH_SCHEDULE, recomputes the watchlist
  cache_sweep      - SWEEP_SCHEDULE, purges expired tier-1 entries

Example:
  go run ./cmd/momentum serve
  go run ./cmd/momentum serve --port 8080 --no-scheduler`,
	RunE: runServe,
}

var (
	servePort        string
	serveNoScheduler bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (default METRICS_PORT)")
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "serve only, no scheduled jobs")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	port := servePort
	if port == "" {
		port = a.cfg.MetricsPort
	}

	var metricsHandler http.Handler
	if a.metrics != nil {
		metricsHandler = a.metrics.Handler()
	}

	router := api.NewRouter(handlers.NewScoreHandler(a.svc, a.log), metricsHandler, a.healthChecks(), a.log)
	server := api.New(port, a.cfg.Env, a.log, router)

	var sched *scheduler.Scheduler
	if !serveNoScheduler {
		sched, err = a.newScheduler()
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	PrintSuccess(fmt.Sprintf("Server running on http://localhost:%s", port))
	if sched != nil {
		PrintInfo(fmt.Sprintf("Scheduled jobs: %v", sched.GetAllJobs()))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			if sched != nil {
				sched.Stop()
			}
			return err
		}
	}

	a.log.Info("Shutting down...")
	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}

// newScheduler registers the sweep job and, when the watchlist exists, the refresh job
func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log, scheduler.Options{MaxRetries: 1, RetryDelay: time.Minute})

	sc := a.cfg.Scheduler
	if err := sched.AddJob(jobs.NewSweepJob(a.memory, sc.SweepSchedule, a.metrics, a.log)); err != nil {
		return nil, err
	}

	if _, err := os.Stat(sc.WatchlistPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		a.log.WithField("path", sc.WatchlistPath).Warn("Watchlist not found, refresh job disabled")
		return sched, nil
	}

	refresh := jobs.NewRefreshJob(a.svc, sc.WatchlistPath, sc.RefreshSchedule, batchDefaults(a.cfg), a.log)
	if err := sched.AddJob(refresh); err != nil {
		return nil, err
	}
	return sched, nil
}

func (a *app) healthChecks() map[string]api.HealthChecker {
	checks := make(map[string]api.HealthChecker)
	if a.db != nil {
		checks["postgres"] = a.db.Ping
	}
	if a.redis.Enabled() {
		checks["redis"] = a.redis.Ping
	}
	return checks
}
