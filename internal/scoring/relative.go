package scoring

import (
	"math"

	"github.com/wonny/momentum/internal/contracts"
)

const relativeWindow = 21

// RelativeDetail holds the intermediate values of the relative component
type RelativeDetail struct {
	TickerReturn    float64 `json:"ticker_return"`
	BenchmarkReturn float64 `json:"benchmark_return"`
	Outperformance  float64 `json:"outperformance"`
	HasBenchmark    bool    `json:"has_benchmark"`
	Score           float64 `json:"score"`
}

// relativeMomentum compares 21-day returns against the benchmark; neutral 50
// when either side lacks history.
func relativeMomentum(closes, benchmark []float64) RelativeDetail {
	d := RelativeDetail{Score: 50}
	if len(benchmark) <= relativeWindow || len(closes) <= relativeWindow {
		return d
	}

	d.HasBenchmark = true
	d.TickerReturn = periodReturn(closes, relativeWindow)
	d.BenchmarkReturn = periodReturn(benchmark, relativeWindow)
	d.Outperformance = d.TickerReturn - d.BenchmarkReturn
	d.Score = RelativeScore(d.Outperformance)
	return d
}

// RelativeScore maps outperformance (fraction, 0.05 = 5%) onto 0-100
func RelativeScore(perf float64) float64 {
	switch {
	case perf > 0.05:
		return 100
	case perf > 0:
		return contracts.Clamp(50+perf*1000, 0, 100)
	default:
		return math.Max(0, 50+perf*500)
	}
}
