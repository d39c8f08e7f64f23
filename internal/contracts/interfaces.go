package contracts

import (
	"context"
	"time"
)

// ScoreRecord is one durable score row keyed by (ticker, as-of date)
type ScoreRecord struct {
	Ticker              string
	AsOfDate            time.Time
	CompositeScore      float64
	PriceMomentum       float64
	TechnicalMomentum   float64
	FundamentalMomentum float64
	RelativeMomentum    float64
	Rating              string // empty = derive from composite
	Price               float64
}

// PriceRecord is the latest durable close for a ticker
type PriceRecord struct {
	Ticker   string
	AsOfDate time.Time
	Close    float64
}

// RecordFromScore converts a computed score into a durable row
func RecordFromScore(s MomentumScore) ScoreRecord {
	return ScoreRecord{
		Ticker:              s.Ticker,
		AsOfDate:            AsOfDate(s.ComputedAt),
		CompositeScore:      s.CompositeScore,
		PriceMomentum:       s.PriceMomentum,
		TechnicalMomentum:   s.TechnicalMomentum,
		FundamentalMomentum: s.FundamentalMomentum,
		RelativeMomentum:    s.RelativeMomentum,
		Rating:              string(s.Rating),
		Price:               s.CurrentPrice,
	}
}

// Score materializes a durable row; a blank or unknown rating is derived
// from the composite.
func (r ScoreRecord) Score(price float64, computedAt time.Time) MomentumScore {
	rating, ok := ParseRating(r.Rating)
	if !ok {
		rating = RatingFor(r.CompositeScore)
	}
	if price <= 0 {
		price = r.Price
	}
	return MomentumScore{
		Ticker:              r.Ticker,
		CompositeScore:      Clamp(r.CompositeScore, 0, 100),
		Rating:              rating,
		PriceMomentum:       Clamp(r.PriceMomentum, 0, 100),
		TechnicalMomentum:   Clamp(r.TechnicalMomentum, 0, 100),
		FundamentalMomentum: Clamp(r.FundamentalMomentum, 0, 100),
		RelativeMomentum:    Clamp(r.RelativeMomentum, 0, 100),
		CurrentPrice:        max(price, 0),
		ComputedAt:          computedAt,
		Source:              TierDurable,
	}
}

// AsOfDate truncates a timestamp to its UTC calendar day
func AsOfDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LiveDataSource fetches market data for one ticker (tier 3).
// Unknown tickers return MarketData{Found: false} and a nil error.
type LiveDataSource interface {
	Fetch(ctx context.Context, ticker string, lookbackDays int) (*MarketData, error)
}

// ScoreStore is the durable score store (tier 2).
// Reads return only the tickers that have rows.
type ScoreStore interface {
	LatestScores(ctx context.Context, tickers []string) (map[string]ScoreRecord, error)
	LatestPrices(ctx context.Context, tickers []string) (map[string]PriceRecord, error)
	UpsertScore(ctx context.Context, rec ScoreRecord) error
	UpsertPrice(ctx context.Context, ticker string, asOf time.Time, closePrice float64) error
}

// CacheStats is a tier-1 snapshot
type CacheStats struct {
	Entries   int           `json:"entries"`
	Expired   int           `json:"expired"`
	Hits      uint64        `json:"hits"`
	Misses    uint64        `json:"misses"`
	Evictions uint64        `json:"evictions"`
	TTL       time.Duration `json:"ttl"`
}

// HitRatio is hits over lookups, zero before the first lookup
func (s CacheStats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// ScoreCache is the typed admin interface of the tier-1 cache
type ScoreCache interface {
	Get(ticker string) (MomentumScore, bool)
	Set(score MomentumScore)
	Size() int
	Clear()
	Keys(pattern string) []string
	Invalidate(tickerOrPattern string) int
	Sweep() int
	Stats() CacheStats
}
