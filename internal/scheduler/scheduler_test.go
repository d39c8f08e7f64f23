package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/momentum/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failFor  int32
	calls    atomic.Int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	if n := j.calls.Add(1); n <= j.failFor {
		return errors.New("transient")
	}
	return nil
}

func TestAddAndRemoveJob(t *testing.T) {
	s := New(logger.NewNop(), Options{})
	job := &countingJob{name: "a", schedule: "@every 1h"}

	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job))
	assert.Equal(t, []string{"a"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
}

func TestAddJobInvalidSchedule(t *testing.T) {
	s := New(logger.NewNop(), Options{})
	assert.Error(t, s.AddJob(&countingJob{name: "bad", schedule: "not a cron"}))
}

func TestRunJobRetries(t *testing.T) {
	s := New(logger.NewNop(), Options{MaxRetries: 2, RetryDelay: time.Millisecond})
	job := &countingJob{name: "flaky", schedule: "@every 1h", failFor: 2}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJob("flaky")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, int32(3), job.calls.Load())

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	require.NotNil(t, stats.LastSuccess)
	assert.Nil(t, stats.LastFailure)
}

func TestRunJobGivesUp(t *testing.T) {
	s := New(logger.NewNop(), Options{MaxRetries: 1, RetryDelay: time.Millisecond})
	job := &countingJob{name: "broken", schedule: "@every 1h", failFor: 100}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJob("broken")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "transient", res.Error)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, int32(2), job.calls.Load())

	history, err := s.GetJobHistory("broken")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = s.RunJob("missing")
	assert.Error(t, err)
}

func TestStopCancelsRetryWait(t *testing.T) {
	s := New(logger.NewNop(), Options{MaxRetries: 5, RetryDelay: time.Hour})
	job := &countingJob{name: "slow", schedule: "@every 1h", failFor: 100}
	require.NoError(t, s.AddJob(job))
	s.Start()

	done := make(chan JobResult, 1)
	go func() {
		res, _ := s.RunJob("slow")
		done <- res
	}()

	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()

	select {
	case res := <-done:
		assert.False(t, res.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not stop")
	}
}

func TestJobHistoryBounded(t *testing.T) {
	h := &JobHistory{}
	_, ok := h.Last()
	assert.False(t, ok)
	assert.Zero(t, h.SuccessRate())

	// first ten refreshes fail, the rest succeed
	for i := 0; i < maxHistory+10; i++ {
		h.Record(JobResult{JobName: "momentum_refresh", Attempts: i + 1, Success: i >= 10})
	}

	assert.Equal(t, maxHistory, h.Len())
	assert.Zero(t, h.Failures())
	assert.Equal(t, 1.0, h.SuccessRate())

	runs := h.Runs()
	require.Len(t, runs, maxHistory)
	assert.Equal(t, 11, runs[0].Attempts)

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, maxHistory+10, last.Attempts)

	h.Record(JobResult{JobName: "momentum_refresh", Error: "all tickers failed"})
	assert.Equal(t, 1, h.Failures())
	assert.InDelta(t, 0.99, h.SuccessRate(), 1e-9)
}
