package cache

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/internal/metrics"
	"github.com/wonny/momentum/pkg/logger"
)

// scoreWriter is implemented by stores that persist score and price atomically
type scoreWriter interface {
	WriteScore(ctx context.Context, rec contracts.ScoreRecord) error
}

// WriteBackConfig sizes the write-back queue
type WriteBackConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration // per job
}

// WriteBack persists tier-3 results to the durable store in the background
// ⭐ SSOT: tier-2 write-back은 이 큐를 통해서만
// Bounded queue, fixed writers; Enqueue never blocks.
type WriteBack struct {
	store   contracts.ScoreStore
	jobs    chan contracts.ScoreRecord
	timeout time.Duration
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewWriteBack starts cfg.Workers writers draining a queue of cfg.QueueSize
func NewWriteBack(store contracts.ScoreStore, cfg WriteBackConfig, log *logger.Logger, m *metrics.Metrics) *WriteBack {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	w := &WriteBack{
		store:   store,
		jobs:    make(chan contracts.ScoreRecord, cfg.QueueSize),
		timeout: cfg.Timeout,
		logger:  log.Component("writeback"),
		metrics: m,
	}

	for i := 0; i < cfg.Workers; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}

	return w
}

// Enqueue queues a score for persistence. Returns false when the score was
// dropped (queue full or closed); drops are logged and counted.
func (w *WriteBack) Enqueue(score contracts.MomentumScore) bool {
	if score.IsInsufficient() {
		return false
	}
	rec := contracts.RecordFromScore(score)

	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.drop(rec, "queue closed")
		return false
	}

	select {
	case w.jobs <- rec:
		w.metrics.WriteBackResult(metrics.WriteEnqueued)
		return true
	default:
		w.drop(rec, "queue full")
		return false
	}
}

func (w *WriteBack) drop(rec contracts.ScoreRecord, reason string) {
	w.metrics.WriteBackResult(metrics.WriteDropped)
	w.logger.WithTicker(rec.Ticker).WithField("reason", reason).Warn("Write-back dropped")
}

// Pending returns the number of queued jobs
func (w *WriteBack) Pending() int {
	return len(w.jobs)
}

// Close stops accepting jobs and waits for the queue to drain or ctx to end
func (w *WriteBack) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		w.logger.WithField("pending", len(w.jobs)).Warn("Write-back drain interrupted")
		return ctx.Err()
	}
}

func (w *WriteBack) worker(id int) {
	defer w.wg.Done()

	for rec := range w.jobs {
		w.write(id, rec)
	}
}

// write runs one job as its own unit of work
func (w *WriteBack) write(id int, rec contracts.ScoreRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	var err error
	if sw, ok := w.store.(scoreWriter); ok {
		err = sw.WriteScore(ctx, rec)
	} else {
		err = w.store.UpsertScore(ctx, rec)
		if err == nil && rec.Price > 0 {
			err = w.store.UpsertPrice(ctx, rec.Ticker, rec.AsOfDate, rec.Price)
		}
	}

	if err != nil {
		w.metrics.WriteBackResult(metrics.WriteFailed)
		w.logger.WithTicker(rec.Ticker).WithField("worker", id).WithError(err).Error("Write-back failed")
		return
	}

	w.metrics.WriteBackResult(metrics.WriteWritten)
	w.logger.WithTicker(rec.Ticker).WithField("worker", id).Debug("Write-back persisted")
}
