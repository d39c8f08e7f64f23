package contracts

import (
	"math"
	"time"
)

// Component weights of the composite score
// ⭐ SSOT: 종합 점수 가중치는 여기서만
const (
	WeightPrice       = 0.40
	WeightTechnical   = 0.25
	WeightFundamental = 0.25
	WeightRelative    = 0.10
)

// Rating is a discrete label derived from the composite score
type Rating string

const (
	RatingStrongBuy        Rating = "STRONG_BUY"
	RatingBuy              Rating = "BUY"
	RatingHold             Rating = "HOLD"
	RatingWeakHold         Rating = "WEAK_HOLD"
	RatingSell             Rating = "SELL"
	RatingInsufficientData Rating = "INSUFFICIENT_DATA"
)

// RatingFor maps a composite score to its rating.
// INSUFFICIENT_DATA is never returned here; it is set by the scoring floor only.
func RatingFor(composite float64) Rating {
	switch {
	case composite >= 80:
		return RatingStrongBuy
	case composite >= 65:
		return RatingBuy
	case composite >= 50:
		return RatingHold
	case composite >= 35:
		return RatingWeakHold
	default:
		return RatingSell
	}
}

// ParseRating converts a stored rating string; ok is false for unknown values
func ParseRating(s string) (Rating, bool) {
	switch r := Rating(s); r {
	case RatingStrongBuy, RatingBuy, RatingHold, RatingWeakHold, RatingSell, RatingInsufficientData:
		return r, true
	default:
		return "", false
	}
}

// Tier identifies which cache tier produced a score
type Tier int

const (
	TierUnknown Tier = iota
	TierMemory       // tier 1: in-process
	TierDurable      // tier 2: durable store
	TierLive         // tier 3: live recomputation
)

func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierDurable:
		return "durable"
	case TierLive:
		return "live"
	default:
		return "unknown"
	}
}

// MomentumScore is the immutable result of one scoring run
// ⭐ SSOT: 모멘텀 점수 데이터 구조
type MomentumScore struct {
	Ticker              string    `json:"ticker"`
	CompositeScore      float64   `json:"composite_score"`
	Rating              Rating    `json:"rating"`
	PriceMomentum       float64   `json:"price_momentum"`
	TechnicalMomentum   float64   `json:"technical_momentum"`
	FundamentalMomentum float64   `json:"fundamental_momentum"`
	RelativeMomentum    float64   `json:"relative_momentum"`
	CurrentPrice        float64   `json:"current_price"` // 0 = unknown
	ComputedAt          time.Time `json:"computed_at"`

	Source Tier `json:"-"`
}

// NewMomentumScore builds a score from its four components, deriving composite and rating
func NewMomentumScore(ticker string, price, technical, fundamental, relative, currentPrice float64, computedAt time.Time) MomentumScore {
	price = Clamp(price, 0, 100)
	technical = Clamp(technical, 0, 100)
	fundamental = Clamp(fundamental, 0, 100)
	relative = Clamp(relative, 0, 100)

	composite := Composite(price, technical, fundamental, relative)
	return MomentumScore{
		Ticker:              ticker,
		CompositeScore:      composite,
		Rating:              RatingFor(composite),
		PriceMomentum:       price,
		TechnicalMomentum:   technical,
		FundamentalMomentum: fundamental,
		RelativeMomentum:    relative,
		CurrentPrice:        math.Max(currentPrice, 0),
		ComputedAt:          computedAt,
	}
}

// InsufficientScore is the first-class result for a too-short history
func InsufficientScore(ticker string, currentPrice float64, computedAt time.Time) MomentumScore {
	return MomentumScore{
		Ticker:       ticker,
		Rating:       RatingInsufficientData,
		CurrentPrice: math.Max(currentPrice, 0),
		ComputedAt:   computedAt,
	}
}

// Composite is the fixed weighted sum of the components, clamped to [0,100]
func Composite(price, technical, fundamental, relative float64) float64 {
	return Clamp(
		price*WeightPrice+
			technical*WeightTechnical+
			fundamental*WeightFundamental+
			relative*WeightRelative,
		0, 100)
}

// IsInsufficient reports whether the score carries the insufficient-data sentinel
func (s MomentumScore) IsInsufficient() bool {
	return s.Rating == RatingInsufficientData
}

// Clamp limits v to [lo, hi]; NaN maps to lo
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
