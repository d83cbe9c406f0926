package market

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means the provider answered but had nothing for the query
	ErrNoData = errors.New("no data")

	// ErrUpstream covers transport failures, non-success HTTP statuses,
	// a status discriminator other than OK and undecodable payloads
	ErrUpstream = errors.New("upstream failure")

	// ErrZeroOpen means the session opened at zero and the percentage change is undefined
	ErrZeroOpen = errors.New("opening price is zero")
)

// GatewayError is returned by every failing Gateway lookup.
// Err always wraps one of ErrNoData, ErrUpstream or ErrZeroOpen.
type GatewayError struct {
	Op     string
	Ticker string
	Err    error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("market: %s %s: %v", e.Op, e.Ticker, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func upstream(op, ticker string, cause error) error {
	return &GatewayError{Op: op, Ticker: ticker, Err: fmt.Errorf("%w: %v", ErrUpstream, cause)}
}

func noData(op, ticker string) error {
	return &GatewayError{Op: op, Ticker: ticker, Err: ErrNoData}
}

func isNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}
