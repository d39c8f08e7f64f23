package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Write-back results
const (
	WriteEnqueued = "enqueued"
	WriteDropped  = "dropped"
	WriteFailed   = "failed"
	WriteWritten  = "written"
)

// Live computation outcomes
const (
	LiveSuccess  = "success"
	LiveFailure  = "failure"
	LiveNotFound = "not_found"
)

// Metrics holds every Prometheus collector of the service.
// A nil *Metrics is valid and records nothing.
// ⭐ SSOT: 메트릭 정의는 여기서만
type Metrics struct {
	registry *prometheus.Registry

	CacheLookups     *prometheus.CounterVec
	LiveComputations *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	BatchDuration    prometheus.Histogram
	BatchItems       *prometheus.CounterVec
	WriteBack        *prometheus.CounterVec
	MemoryEntries    prometheus.Gauge
}

// New creates the collectors on a fresh registry (plus Go/process collectors)
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_cache_lookups_total",
				Help: "Score lookups by cache tier and result",
			},
			[]string{"tier", "result"},
		),

		LiveComputations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_live_computations_total",
				Help: "Tier-3 fetch and score runs by outcome",
			},
			[]string{"outcome"},
		),

		FetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "momentum_live_fetch_duration_seconds",
				Help:    "Live data fetch latency",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),

		BatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "momentum_batch_duration_seconds",
				Help:    "Batch computation wall time",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),

		BatchItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_batch_items_total",
				Help: "Batch items by final state",
			},
			[]string{"state"},
		),

		WriteBack: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_writeback_total",
				Help: "Durable write-back jobs by result",
			},
			[]string{"result"},
		),

		MemoryEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "momentum_memory_cache_entries",
				Help: "Entries currently held by the in-process cache",
			},
		),
	}

	m.registry.MustRegister(
		m.CacheLookups,
		m.LiveComputations,
		m.FetchDuration,
		m.BatchDuration,
		m.BatchItems,
		m.WriteBack,
		m.MemoryEntries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Lookup records a tier hit or miss
func (m *Metrics) Lookup(tier string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(tier, result).Inc()
}

// Live records one tier-3 run and its fetch latency
func (m *Metrics) Live(outcome string, fetch time.Duration) {
	if m == nil {
		return
	}
	m.LiveComputations.WithLabelValues(outcome).Inc()
	if fetch > 0 {
		m.FetchDuration.Observe(fetch.Seconds())
	}
}

// Batch records a finished batch
func (m *Metrics) Batch(elapsed time.Duration, states map[string]int) {
	if m == nil {
		return
	}
	m.BatchDuration.Observe(elapsed.Seconds())
	for state, n := range states {
		m.BatchItems.WithLabelValues(state).Add(float64(n))
	}
}

// WriteBackResult counts one write-back event
func (m *Metrics) WriteBackResult(result string) {
	if m == nil {
		return
	}
	m.WriteBack.WithLabelValues(result).Inc()
}

// SetMemoryEntries publishes the tier-1 size
func (m *Metrics) SetMemoryEntries(n int) {
	if m == nil {
		return
	}
	m.MemoryEntries.Set(float64(n))
}
