package contracts

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrProviderFailure  = errors.New("live data provider failure")
	ErrStoreUnavailable = errors.New("durable score store unavailable")
	ErrInvalidTicker    = errors.New("invalid ticker")
)

// ProviderError is a live fetch failure for a single ticker.
// It matches ErrProviderFailure and whatever cause it carries.
type ProviderError struct {
	Ticker string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider failure for %s", e.Ticker)
	}
	return fmt.Sprintf("provider failure for %s: %v", e.Ticker, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProviderFailure}
	}
	return []error{ErrProviderFailure, e.Err}
}

// NewProviderError wraps err for ticker; an existing ProviderError is returned as is
func NewProviderError(ticker string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Ticker: ticker, Err: err}
}

// StoreError wraps a store failure so it matches ErrStoreUnavailable
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
