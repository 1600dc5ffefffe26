package provider

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a fixed minimum interval between provider calls. It is
// independent of the circuit breaker and applies even when every call succeeds.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows one call per minInterval with no burst. A non-positive interval
// disables spacing.
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next call may start or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
