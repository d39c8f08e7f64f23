package scoring

import (
	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// lastSMA returns the simple moving average of the final period closes
func lastSMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	return lastValid(talib.Sma(closes, period))
}

// lastRSI returns Wilder's RSI for the most recent bar
func lastRSI(closes []float64, period int) (float64, bool) {
	if len(closes) < period+1 {
		return 0, false
	}
	return lastValid(talib.Rsi(closes, period))
}

// lastROC returns the percentage rate of change over period bars
func lastROC(closes []float64, period int) (float64, bool) {
	if len(closes) < period+1 {
		return 0, false
	}
	return lastValid(talib.Roc(closes, period))
}

// periodReturn is close[last]/close[last-window] - 1; 0 when history <= window
func periodReturn(closes []float64, window int) float64 {
	n := len(closes)
	if window <= 0 || n <= window {
		return 0
	}
	past := closes[n-1-window]
	if past <= 0 {
		return 0
	}
	return closes[n-1]/past - 1
}

// volumeRatio is last volume over the mean of the trailing window (inclusive)
func volumeRatio(volumes []float64, window int) (float64, bool) {
	n := len(volumes)
	if n == 0 {
		return 0, false
	}
	if n < window {
		window = n
	}
	avg := stat.Mean(volumes[n-window:], nil)
	if avg <= 0 || isNaN(avg) {
		return 0, false
	}
	return volumes[n-1] / avg, true
}

func lastValid(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	v := values[len(values)-1]
	if isNaN(v) {
		return 0, false
	}
	return v, true
}

func isNaN(f float64) bool {
	return f != f
}
