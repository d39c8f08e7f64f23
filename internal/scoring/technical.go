package scoring

import (
	"math"

	"github.com/wonny/momentum/internal/contracts"
)

const (
	rsiPeriod    = 14
	rocPeriod    = 10
	volumeWindow = 30
)

// TechnicalDetail holds the intermediate values of the technical component
type TechnicalDetail struct {
	RSI         float64 `json:"rsi"`
	RSIScore    float64 `json:"rsi_score"`
	VolumeRatio float64 `json:"volume_ratio"`
	VolumeScore float64 `json:"volume_score"`
	ROC         float64 `json:"roc"` // percent
	ROCScore    float64 `json:"roc_score"`
	Score       float64 `json:"score"`
}

// technicalMomentum blends RSI, volume confirmation and 10-day ROC (0.4/0.3/0.3)
func technicalMomentum(series contracts.Series) TechnicalDetail {
	var d TechnicalDetail
	if len(series) < MinPoints {
		return d
	}
	closes := series.Closes()

	if rsi, ok := lastRSI(closes, rsiPeriod); ok {
		d.RSI = rsi
		d.RSIScore = RSIScore(rsi)
	}

	// 평균 거래량이 0이면 중립
	d.VolumeScore = 50
	if ratio, ok := volumeRatio(series.Volumes(), volumeWindow); ok {
		d.VolumeRatio = ratio
		d.VolumeScore = math.Min(100, 50*ratio)
	}

	if roc, ok := lastROC(closes, rocPeriod); ok {
		d.ROC = roc
	}
	d.ROCScore = contracts.Clamp(d.ROC*10+50, 0, 100)

	d.Score = contracts.Clamp(0.4*d.RSIScore+0.3*d.VolumeScore+0.3*d.ROCScore, 0, 100)
	return d
}

// RSIScore maps an RSI value onto 0-100: full marks inside [50,70],
// ramping up across [30,50) and down across (70,85], zero elsewhere.
func RSIScore(rsi float64) float64 {
	switch {
	case rsi >= 50 && rsi <= 70:
		return 100
	case rsi >= 30 && rsi < 50:
		return (rsi - 30) / 20 * 100
	case rsi > 70 && rsi <= 85:
		return (85 - rsi) / 15 * 100
	default:
		return 0
	}
}
