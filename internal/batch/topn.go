package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/momentum/internal/contracts"
)

// Field selects the value scores are ranked by
type Field string

const (
	FieldComposite    Field = "composite"
	FieldPrice        Field = "price"
	FieldTechnical    Field = "technical"
	FieldFundamental  Field = "fundamental"
	FieldRelative     Field = "relative"
	FieldCurrentPrice Field = "current_price"
)

var ErrUnknownField = errors.New("unknown ranking field")

// ParseField maps user input to a Field; empty means composite
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FieldComposite, nil
	case FieldComposite, FieldPrice, FieldTechnical, FieldFundamental, FieldRelative, FieldCurrentPrice:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

// Value extracts the ranked value from a score
func (f Field) Value(s contracts.MomentumScore) float64 {
	switch f {
	case FieldPrice:
		return s.PriceMomentum
	case FieldTechnical:
		return s.TechnicalMomentum
	case FieldFundamental:
		return s.FundamentalMomentum
	case FieldRelative:
		return s.RelativeMomentum
	case FieldCurrentPrice:
		return s.CurrentPrice
	default:
		return s.CompositeScore
	}
}

// TopN runs a batch and returns the n best scores by field
// ⭐ SSOT: 순위 정렬은 여기서만
func (c *Coordinator) TopN(ctx context.Context, tickers []string, n int, field Field, opts Options) ([]contracts.MomentumScore, *Result, error) {
	if field == "" {
		field = FieldComposite
	}
	if _, err := ParseField(string(field)); err != nil {
		return nil, nil, err
	}

	result := c.Compute(ctx, tickers, opts)
	return Rank(result.Scores(), n, field), result, nil
}

// Rank sorts scores descending by field, ticker ascending on ties.
// Failures never reach here; INSUFFICIENT_DATA scores rank after every scored one.
func Rank(scores map[string]contracts.MomentumScore, n int, field Field) []contracts.MomentumScore {
	if n <= 0 {
		return []contracts.MomentumScore{}
	}

	ranked := make([]contracts.MomentumScore, 0, len(scores))
	for _, s := range scores {
		ranked = append(ranked, s)
	}

	sort.Slice(ranked, func(i, j int) bool {
		ii, ij := ranked[i].IsInsufficient(), ranked[j].IsInsufficient()
		if ii != ij {
			return ij
		}
		vi, vj := field.Value(ranked[i]), field.Value(ranked[j])
		if vi != vj {
			return vi > vj
		}
		return ranked[i].Ticker < ranked[j].Ticker
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
