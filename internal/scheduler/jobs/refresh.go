package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/momentum/internal/batch"
	"github.com/wonny/momentum/internal/watchlist"
	"github.com/wonny/momentum/pkg/logger"
)

// BatchRunner is the part of the service the refresh job drives
type BatchRunner interface {
	BatchCompute(ctx context.Context, tickers []string, opts batch.Options) *batch.Result
}

// RefreshJob recomputes every watchlist ticker from live data.
// Fresh scores land in tier 1 and are written back to the durable store.
type RefreshJob struct {
	runner   BatchRunner
	path     string
	schedule string
	opts     batch.Options
	logger   *logger.Logger
}

// NewRefreshJob creates a refresh job; the watchlist is re-read on every run
func NewRefreshJob(runner BatchRunner, watchlistPath, schedule string, opts batch.Options, log *logger.Logger) *RefreshJob {
	opts.Refresh = true
	return &RefreshJob{
		runner:   runner,
		path:     watchlistPath,
		schedule: schedule,
		opts:     opts,
		logger:   log.Component("refresh_job"),
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "momentum_refresh"
}

// Schedule returns the cron schedule
func (j *RefreshJob) Schedule() string {
	return j.schedule
}

// Run executes one refresh; it fails only when no ticker could be scored
func (j *RefreshJob) Run(ctx context.Context) error {
	wl, err := watchlist.Load(j.path)
	if err != nil {
		return err
	}
	hash, _ := wl.Hash()

	log := j.logger.WithFields(map[string]interface{}{
		"watchlist": wl.Name,
		"hash":      hash,
		"tickers":   len(wl.Tickers),
	})
	log.Info("Starting scheduled refresh")

	res := j.runner.BatchCompute(ctx, wl.Tickers, j.opts)
	if res.Requested > 0 && res.Succeeded == 0 {
		return fmt.Errorf("refresh %s: all %d tickers failed", wl.Name, res.Requested)
	}

	log.WithFields(map[string]interface{}{
		"batch_id":  res.ID.String(),
		"succeeded": res.Succeeded,
		"failed":    res.Failed,
		"elapsed":   res.Elapsed.String(),
	}).Info("Scheduled refresh completed")

	if wl.Report.TopN > 0 {
		top := batch.Rank(res.Scores(), wl.Report.TopN, batch.Field(wl.Report.Field))
		for i, s := range top {
			j.logger.WithFields(map[string]interface{}{
				"rank":      i + 1,
				"ticker":    s.Ticker,
				"composite": s.CompositeScore,
				"rating":    s.Rating,
			}).Info("Watchlist leader")
		}
	}

	return nil
}
