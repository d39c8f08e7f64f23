package contracts

import (
	"math"
	"time"
)

// PricePoint is one daily bar
type PricePoint struct {
	Date   time.Time
	Close  float64
	Volume float64
}

// Series is a chronological (oldest first) daily history
type Series []PricePoint

// Closes returns the close prices in order
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Close
	}
	return out
}

// Volumes returns the volumes in order
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Volume
	}
	return out
}

// Last returns the most recent close, 0 when empty
func (s Series) Last() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Close
}

// Fundamentals holds the valuation inputs; nil means missing
type Fundamentals struct {
	ForwardPE *float64 `json:"forward_pe,omitempty"`
	PEG       *float64 `json:"peg,omitempty"`
}

// ForwardPEValue returns the forward P/E when present and finite
func (f Fundamentals) ForwardPEValue() (float64, bool) {
	return finite(f.ForwardPE)
}

// PEGValue returns the PEG ratio when present and finite
func (f Fundamentals) PEGValue() (float64, bool) {
	return finite(f.PEG)
}

func finite(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

// Float is a helper for building Fundamentals literals
func Float(v float64) *float64 {
	return &v
}

// MarketData is what the live source returns for one ticker.
// Found is false for unknown or delisted tickers (no error).
type MarketData struct {
	Ticker       string
	Series       Series
	Fundamentals Fundamentals
	Found        bool
}

// ScoreInput is everything the scoring engine needs; the engine does no I/O
type ScoreInput struct {
	Ticker       string
	Series       Series
	Fundamentals Fundamentals
	Benchmark    Series // nil when unavailable
	AsOf         time.Time
}
