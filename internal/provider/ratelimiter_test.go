package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterFirstCallImmediate(t *testing.T) {
	limiter := NewRateLimiter(time.Minute)

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestRateLimiterSpacesCalls(t *testing.T) {
	limiter := NewRateLimiter(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond, "three calls span at least two intervals")
}

func TestRateLimiterHonorsContext(t *testing.T) {
	limiter := NewRateLimiter(time.Second)
	ctx := context.Background()
	_ = limiter.Wait(ctx)

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	assert.Error(t, limiter.Wait(timeoutCtx))
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewRateLimiter(0)
	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}
