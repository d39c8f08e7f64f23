package batch

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/momentum/internal/contracts"
)

// State is the per-ticker lifecycle inside one batch
type State string

const (
	StatePending   State = "pending"
	StateCacheHit  State = "cache_hit"
	StateComputing State = "computing"
	StateSuccess   State = "success"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition is allowed
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

var transitions = map[State][]State{
	StatePending:   {StateCacheHit, StateComputing, StateFailed},
	StateCacheHit:  {StateSuccess},
	StateComputing: {StateSuccess, StateFailed},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Outcome is the final state of one ticker
type Outcome struct {
	Ticker  string                   `json:"ticker"`
	State   State                    `json:"state"`
	Cached  bool                     `json:"cached"`
	Score   *contracts.MomentumScore `json:"score,omitempty"`
	Err     error                    `json:"-"`
	Elapsed time.Duration            `json:"elapsed"`
}

// Result is the merged outcome of a batch run
type Result struct {
	ID        uuid.UUID          `json:"id"`
	StartedAt time.Time          `json:"started_at"`
	Elapsed   time.Duration      `json:"elapsed"`
	Workers   int                `json:"workers"`
	Requested int                `json:"requested"`
	Succeeded int                `json:"succeeded"`
	CacheHits int                `json:"cache_hits"`
	Failed    int                `json:"failed"`
	Outcomes  map[string]Outcome `json:"outcomes"`
}

func newResult(tickers []string, workers int) *Result {
	r := &Result{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		Workers:   workers,
		Requested: len(tickers),
		Outcomes:  make(map[string]Outcome, len(tickers)),
	}
	for _, t := range tickers {
		r.Outcomes[t] = Outcome{Ticker: t, State: StatePending}
	}
	return r
}

// transition moves a ticker to the next state; invalid moves are rejected
func (r *Result) transition(ticker string, to State) error {
	o, ok := r.Outcomes[ticker]
	if !ok {
		return fmt.Errorf("unknown ticker %s", ticker)
	}
	if !canTransition(o.State, to) {
		return fmt.Errorf("invalid transition %s -> %s for %s", o.State, to, ticker)
	}
	o.State = to
	r.Outcomes[ticker] = o
	return nil
}

// finish tallies counters once every outcome is terminal
func (r *Result) finish() {
	r.Succeeded, r.CacheHits, r.Failed = 0, 0, 0
	for _, o := range r.Outcomes {
		switch o.State {
		case StateSuccess:
			r.Succeeded++
			if o.Cached {
				r.CacheHits++
			}
		case StateFailed:
			r.Failed++
		}
	}
	r.Elapsed = time.Since(r.StartedAt)
}

// Scores returns the successful scores keyed by ticker
func (r *Result) Scores() map[string]contracts.MomentumScore {
	out := make(map[string]contracts.MomentumScore, r.Succeeded)
	for t, o := range r.Outcomes {
		if o.Score != nil {
			out[t] = *o.Score
		}
	}
	return out
}

// Errors returns the failures keyed by ticker
func (r *Result) Errors() map[string]error {
	out := make(map[string]error, r.Failed)
	for t, o := range r.Outcomes {
		if o.State == StateFailed {
			out[t] = o.Err
		}
	}
	return out
}

// Throughput is completed items per second
func (r *Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Succeeded+r.Failed) / r.Elapsed.Seconds()
}

// StateCounts groups outcomes by final state; cached successes count as cache_hit
func (r *Result) StateCounts() map[string]int {
	out := make(map[string]int, 3)
	for _, o := range r.Outcomes {
		if o.Cached {
			out[string(StateCacheHit)]++
			continue
		}
		out[string(o.State)]++
	}
	return out
}
