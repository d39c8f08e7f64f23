package jobs

import (
	"context"

	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/internal/metrics"
	"github.com/wonny/momentum/pkg/logger"
)

// SweepJob purges expired tier-1 entries and reports cache stats
type SweepJob struct {
	cache    contracts.ScoreCache
	schedule string
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

// NewSweepJob creates a sweep job
func NewSweepJob(cache contracts.ScoreCache, schedule string, m *metrics.Metrics, log *logger.Logger) *SweepJob {
	return &SweepJob{
		cache:    cache,
		schedule: schedule,
		metrics:  m,
		logger:   log.Component("sweep_job"),
	}
}

// Name returns the job name
func (j *SweepJob) Name() string {
	return "cache_sweep"
}

// Schedule returns the cron schedule
func (j *SweepJob) Schedule() string {
	return j.schedule
}

// Run executes the sweep
func (j *SweepJob) Run(ctx context.Context) error {
	removed := j.cache.Sweep()
	st := j.cache.Stats()
	j.metrics.SetMemoryEntries(st.Entries)

	log := j.logger.WithFields(map[string]interface{}{
		"removed":   removed,
		"entries":   st.Entries,
		"hits":      st.Hits,
		"misses":    st.Misses,
		"evictions": st.Evictions,
	})
	if removed > 0 {
		log.Info("Cache sweep completed")
	} else {
		log.Debug("Cache sweep completed")
	}

	return nil
}
