package provider

import (
	"sync"
	"time"

	"optionscout/internal/domain"
)

// CircuitBreaker counts consecutive breaker-eligible failures and opens for a fixed
// cool-down once the threshold is reached. The request queue consults it before every
// dispatch and updates it after every outcome.
type CircuitBreaker struct {
	mu                  sync.Mutex
	consecutiveFailures int
	open                bool
	openUntil           time.Time

	threshold int
	cooldown  time.Duration
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a dispatch may proceed at now. While open it returns the
// remaining wait. An expired breaker closes optimistically; the failure count is only
// cleared by the next success.
func (b *CircuitBreaker) Allow(now time.Time) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		if now.Before(b.openUntil) {
			return b.openUntil.Sub(now), false
		}
		b.open = false
		b.openUntil = time.Time{}
	}
	return 0, true
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	b.consecutiveFailures = 0
	b.mu.Unlock()
}

// RecordFailure counts one failure and returns the new count and whether this call
// opened the breaker.
func (b *CircuitBreaker) RecordFailure(now time.Time) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	if b.consecutiveFailures >= b.threshold && !b.open {
		b.open = true
		b.openUntil = now.Add(b.cooldown)
		return b.consecutiveFailures, true
	}
	return b.consecutiveFailures, false
}

func (b *CircuitBreaker) Threshold() int {
	return b.threshold
}

func (b *CircuitBreaker) State(now time.Time) domain.CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := domain.CircuitState{ConsecutiveFailures: b.consecutiveFailures}
	if b.open && now.Before(b.openUntil) {
		until := b.openUntil
		state.Open = true
		state.OpenUntil = &until
	}
	return state
}
