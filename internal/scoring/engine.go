package scoring

import (
	"time"

	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/pkg/logger"
)

// History floors
const (
	MinPoints   = 50  // below this the score is INSUFFICIENT_DATA
	FullHistory = 249 // price momentum needs the full 12-month window
)

// Engine computes momentum scores from market data
// ⭐ SSOT: 모멘텀 점수 계산은 여기서만
// Pure: the result depends only on ScoreInput.
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a scoring engine
func NewEngine(log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{logger: log.Component("scoring")}
}

// Breakdown is the full set of intermediate values behind one score
type Breakdown struct {
	Ticker      string                  `json:"ticker"`
	AsOf        time.Time               `json:"as_of"`
	Points      int                     `json:"points"`
	Price       PriceDetail             `json:"price"`
	Technical   TechnicalDetail         `json:"technical"`
	Fundamental float64                 `json:"fundamental"`
	Relative    RelativeDetail          `json:"relative"`
	Score       contracts.MomentumScore `json:"score"`
}

// Score computes the momentum score for one ticker
func (e *Engine) Score(in contracts.ScoreInput) contracts.MomentumScore {
	b := e.Explain(in)

	e.logger.WithFields(map[string]interface{}{
		"ticker":    b.Ticker,
		"points":    b.Points,
		"composite": b.Score.CompositeScore,
		"rating":    b.Score.Rating,
	}).Debug("Computed momentum score")

	return b.Score
}

// Explain computes the score and returns every intermediate value
func (e *Engine) Explain(in contracts.ScoreInput) Breakdown {
	b := Breakdown{
		Ticker: in.Ticker,
		AsOf:   in.AsOf,
		Points: len(in.Series),
	}

	if len(in.Series) < MinPoints {
		b.Score = contracts.InsufficientScore(in.Ticker, in.Series.Last(), in.AsOf)
		return b
	}

	closes := in.Series.Closes()

	b.Price = priceMomentum(closes)
	b.Technical = technicalMomentum(in.Series)
	b.Fundamental = fundamentalMomentum(in.Fundamentals)
	b.Relative = relativeMomentum(closes, in.Benchmark.Closes())

	b.Score = contracts.NewMomentumScore(
		in.Ticker,
		b.Price.Score,
		b.Technical.Score,
		b.Fundamental,
		b.Relative.Score,
		in.Series.Last(),
		in.AsOf,
	)
	return b
}
