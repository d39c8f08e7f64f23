package scheduler

import (
	"context"
	"time"
)

// Job is one periodic unit of work, e.g. the watchlist refresh or the
// tier-1 sweep.
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string
	Run(ctx context.Context) error
	// Schedule is a cron spec with a seconds field ("0 30 16 * * MON-FRI")
	// or a descriptor ("@every 5m").
	Schedule() string
}

// JobResult is one run of a job, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

const maxHistory = 100

// JobHistory keeps the last maxHistory runs of a job, oldest first.
// Guarded by the scheduler's mutex.
type JobHistory struct {
	runs     []JobResult
	failures int
}

// Record appends a run and drops the oldest beyond maxHistory
func (h *JobHistory) Record(r JobResult) {
	h.runs = append(h.runs, r)
	if !r.Success {
		h.failures++
	}

	if over := len(h.runs) - maxHistory; over > 0 {
		for _, old := range h.runs[:over] {
			if !old.Success {
				h.failures--
			}
		}
		h.runs = append(h.runs[:0:0], h.runs[over:]...)
	}
}

// Runs returns a copy of the kept runs
func (h *JobHistory) Runs() []JobResult {
	return append([]JobResult(nil), h.runs...)
}

// Last returns the most recent run
func (h *JobHistory) Last() (JobResult, bool) {
	if len(h.runs) == 0 {
		return JobResult{}, false
	}
	return h.runs[len(h.runs)-1], true
}

// Len is the number of kept runs
func (h *JobHistory) Len() int {
	return len(h.runs)
}

// Failures counts failed runs among the kept ones
func (h *JobHistory) Failures() int {
	return h.failures
}

// SuccessRate is the share of kept runs that succeeded, 0 with no runs
func (h *JobHistory) SuccessRate() float64 {
	if len(h.runs) == 0 {
		return 0
	}
	return float64(len(h.runs)-h.failures) / float64(len(h.runs))
}
