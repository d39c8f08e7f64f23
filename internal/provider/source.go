package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/pkg/config"
	"github.com/wonny/momentum/pkg/logger"
)

// Source is the live data source: bars from the chart API plus scraped
// fundamentals, behind a circuit breaker.
// ⭐ SSOT: contracts.LiveDataSource 구현체
type Source struct {
	chart        *ChartClient
	fundamentals *FundamentalsScraper // nil = fundamentals disabled
	breaker      *gobreaker.CircuitBreaker
	logger       *logger.Logger
}

var _ contracts.LiveDataSource = (*Source)(nil)

// NewSource creates a live data source
func NewSource(cfg config.ProviderConfig, chart *ChartClient, fundamentals *FundamentalsScraper, log *logger.Logger) *Source {
	log = log.Component("provider")

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	st := gobreaker.Settings{
		Name:        "live-data",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
		// a caller's own cancel or deadline says nothing about provider health
		IsSuccessful: func(err error) bool {
			var ce callerError
			return err == nil || errors.As(err, &ce)
		},
	}

	return &Source{
		chart:        chart,
		fundamentals: fundamentals,
		breaker:      gobreaker.NewCircuitBreaker(st),
		logger:       log,
	}
}

// Fetch implements contracts.LiveDataSource.
// Fundamentals are best effort: a scrape failure leaves them empty.
func (s *Source) Fetch(ctx context.Context, ticker string, lookbackDays int) (*contracts.MarketData, error) {
	type chartResult struct {
		series contracts.Series
		found  bool
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		series, found, err := s.chart.FetchSeries(ctx, ticker, lookbackDays)
		if err != nil {
			if ctx.Err() != nil {
				return nil, callerError{err: err}
			}
			return nil, err
		}
		return chartResult{series: series, found: found}, nil
	})
	if err != nil {
		return nil, contracts.NewProviderError(ticker, err)
	}

	res := out.(chartResult)
	data := &contracts.MarketData{Ticker: ticker, Series: res.series, Found: res.found}
	if !res.found || s.fundamentals == nil {
		return data, nil
	}

	f, err := s.fundamentals.Fetch(ctx, ticker)
	if err != nil {
		s.logger.WithTicker(ticker).WithError(err).Warn("Fundamentals unavailable, scoring without them")
		return data, nil
	}
	data.Fundamentals = f

	return data, nil
}

// callerError marks a fetch cut short by the caller's context, e.g. one
// batch item's timeout; it does not count against the breaker.
type callerError struct {
	err error
}

func (e callerError) Error() string { return e.err.Error() }

func (e callerError) Unwrap() error { return e.err }

// BreakerState reports the circuit breaker state (closed, half-open, open)
func (s *Source) BreakerState() string {
	return s.breaker.State().String()
}
