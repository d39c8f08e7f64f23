package batch

import (
	"context"
	"time"
)

// Comparison is a sequential vs concurrent run over the same tickers
type Comparison struct {
	Tickers    int           `json:"tickers"`
	Workers    int           `json:"workers"`
	Sequential time.Duration `json:"sequential"`
	Concurrent time.Duration `json:"concurrent"`
	Speedup    float64       `json:"speedup"`

	SequentialResult *Result `json:"-"`
	ConcurrentResult *Result `json:"-"`
}

// Compare times one worker against opts.MaxWorkers.
// Both runs recompute from live data so cached copies do not skew timings.
func (c *Coordinator) Compare(ctx context.Context, tickers []string, opts Options) *Comparison {
	opts = opts.withDefaults()
	opts.Refresh = true

	seqOpts := opts
	seqOpts.MaxWorkers = 1

	seq := c.Compute(ctx, tickers, seqOpts)
	con := c.Compute(ctx, tickers, opts)

	cmp := &Comparison{
		Tickers:          seq.Requested,
		Workers:          opts.MaxWorkers,
		Sequential:       seq.Elapsed,
		Concurrent:       con.Elapsed,
		SequentialResult: seq,
		ConcurrentResult: con,
	}
	if con.Elapsed > 0 {
		cmp.Speedup = seq.Elapsed.Seconds() / con.Elapsed.Seconds()
	}

	c.logger.WithFields(map[string]interface{}{
		"tickers":    cmp.Tickers,
		"workers":    cmp.Workers,
		"sequential": cmp.Sequential.String(),
		"concurrent": cmp.Concurrent.String(),
		"speedup":    cmp.Speedup,
	}).Info("Batch comparison completed")

	return cmp
}
