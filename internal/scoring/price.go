package scoring

import "github.com/wonny/momentum/internal/contracts"

// Price momentum windows in trading days (1, 3, 6, 12 months) and their weights
var (
	returnWindows = [4]int{21, 63, 126, 249}
	returnWeights = [4]float64{0.4, 0.3, 0.2, 0.1}
)

// Moving average trend points: close above SMA20/50/200
var (
	trendPeriods = [3]int{20, 50, 200}
	trendPoints  = [3]float64{40, 30, 30}
)

// PriceDetail holds the intermediate values of the price component
type PriceDetail struct {
	Returns        [4]float64 `json:"returns"` // 21/63/126/249-day
	WeightedReturn float64    `json:"weighted_return"`
	SMA            [3]float64 `json:"sma"` // 20/50/200-day
	AboveSMA       [3]bool    `json:"above_sma"`
	TrendPoints    float64    `json:"trend_points"`
	Score          float64    `json:"score"`
}

// priceMomentum scores trailing returns plus moving average trend.
// Fewer than FullHistory points yields 0.
func priceMomentum(closes []float64) PriceDetail {
	var d PriceDetail
	if len(closes) < FullHistory {
		return d
	}

	for i, w := range returnWindows {
		d.Returns[i] = periodReturn(closes, w)
		d.WeightedReturn += d.Returns[i] * returnWeights[i]
	}

	last := closes[len(closes)-1]
	for i, p := range trendPeriods {
		sma, ok := lastSMA(closes, p)
		if !ok {
			continue
		}
		d.SMA[i] = sma
		if last > sma {
			d.AboveSMA[i] = true
			d.TrendPoints += trendPoints[i]
		}
	}

	d.Score = contracts.Clamp(d.WeightedReturn*100+d.TrendPoints, 0, 100)
	return d
}
