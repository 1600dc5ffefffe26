package provider

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoPricingData marks a listed contract without a usable quote. Such contracts are
	// dropped from chain results rather than surfaced to callers.
	ErrNoPricingData = errors.New("no pricing data")

	// ErrQuoteUnavailable is returned when neither the last trade nor the previous-day
	// aggregate could be fetched for a symbol.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	ErrQueueClosed = errors.New("request queue closed")
)

// CircuitOpenError is returned without touching the network while the breaker is open.
// Callers should retry after RetryAfter.
type CircuitOpenError struct {
	OpenUntil  time.Time
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("market data provider unavailable, circuit open for %s", e.RetryAfter.Round(time.Second))
}

// RateLimitError is a 429 that was still rejected after the request's retries.
type RateLimitError struct {
	URL      string
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider rate limit exceeded after %d attempts", e.Attempts)
}

// HTTPError is any non-2xx, non-429 provider response.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("provider API error %d: %s", e.Status, body)
}

// NetworkError wraps transport failures and timeouts.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("provider network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsCircuitOpen reports whether err (or anything it wraps) is a CircuitOpenError.
func IsCircuitOpen(err error) (*CircuitOpenError, bool) {
	var coe *CircuitOpenError
	if errors.As(err, &coe) {
		return coe, true
	}
	return nil, false
}
