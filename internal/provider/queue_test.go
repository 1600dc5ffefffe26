package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type transportFunc func(ctx context.Context, url string) (*Response, error)

func (f transportFunc) Get(ctx context.Context, url string) (*Response, error) {
	return f(ctx, url)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return nil
}

func (r *recordedSleeps) all() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func testQueueConfig() QueueConfig {
	return QueueConfig{
		MinInterval:      time.Millisecond,
		RequestTimeout:   time.Second,
		FailureThreshold: 3,
		CircuitCooldown:  5 * time.Minute,
		BackoffBase:      5 * time.Second,
		OutcomeRetention: 15 * time.Minute,
		OutcomeLogSize:   100,
	}
}

func newTestQueue(t *testing.T, transport Transport) (*RequestQueue, *fakeClock, *recordedSleeps) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)}
	sleeps := &recordedSleeps{}
	q := NewRequestQueue(transport, testQueueConfig(), noop.NewTracerProvider().Tracer("test"), zap.NewNop(), NewMetrics(prometheus.NewRegistry()))
	q.now = clock.Now
	q.sleep = sleeps.sleep

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return q, clock, sleeps
}

func okResponse(body string) *Response {
	return &Response{Status: http.StatusOK, Body: []byte(body), Latency: 5 * time.Millisecond}
}

func TestRequestQueueSerializesDispatch(t *testing.T) {
	var inFlight, maxInFlight, calls int32
	q, _, _ := newTestQueue(t, transportFunc(func(ctx context.Context, url string) (*Response, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			prev := atomic.LoadInt32(&maxInFlight)
			if n <= prev || atomic.CompareAndSwapInt32(&maxInFlight, prev, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		atomic.AddInt32(&calls, 1)
		return okResponse(`{}`), nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := q.Enqueue(context.Background(), fmt.Sprintf("http://example/%d", i))
			assert.NoError(t, err)
			assert.Equal(t, http.StatusOK, out.HTTPStatus)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
	assert.Equal(t, int32(10), atomic.LoadInt32(&calls))
	assert.Equal(t, 10, q.Status().Outcomes.Successes)
}

func TestRequestQueueFIFOWithRetryAtFront(t *testing.T) {
	var mu sync.Mutex
	var order []string
	release := make(chan struct{})
	firstA := true

	q, _, sleeps := newTestQueue(t, transportFunc(func(ctx context.Context, url string) (*Response, error) {
		mu.Lock()
		order = append(order, url)
		wasFirst := url == "a" && firstA
		if wasFirst {
			firstA = false
		}
		mu.Unlock()

		if wasFirst {
			<-release
			return &Response{Status: http.StatusTooManyRequests}, nil
		}
		return okResponse(`{}`), nil
	}))

	results := make(chan string, 2)
	go func() {
		_, err := q.Enqueue(context.Background(), "a")
		assert.NoError(t, err)
		results <- "a"
	}()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 1
	}, time.Second, time.Millisecond)

	go func() {
		_, err := q.Enqueue(context.Background(), "b")
		assert.NoError(t, err)
		results <- "b"
	}()
	require.Eventually(t, func() bool { return q.Pending() == 1 }, time.Second, time.Millisecond)
	close(release)

	<-results
	<-results

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "a", "b"}, order)
	assert.Equal(t, []time.Duration{10 * time.Second}, sleeps.all())
}

func TestRequestQueueOpensCircuitAfterRepeated429(t *testing.T) {
	var calls int32
	q, _, sleeps := newTestQueue(t, transportFunc(func(ctx context.Context, url string) (*Response, error) {
		atomic.AddInt32(&calls, 1)
		return &Response{Status: http.StatusTooManyRequests}, nil
	}))

	out, err := q.Enqueue(context.Background(), "http://example/quote?apiKey=secret")
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 3, rateErr.Attempts)
	assert.NotContains(t, rateErr.URL, "secret")
	assert.Equal(t, http.StatusTooManyRequests, out.HTTPStatus)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, sleeps.all())

	status := q.Status()
	assert.True(t, status.Circuit.Open)
	assert.Equal(t, 3, status.Circuit.ConsecutiveFailures)
	assert.Equal(t, 3, status.Outcomes.RateLimited)

	_, err = q.Enqueue(context.Background(), "http://example/next")
	coe, ok := IsCircuitOpen(err)
	require.True(t, ok, "expected circuit open error, got %v", err)
	assert.InDelta(t, (5 * time.Minute).Seconds(), coe.RetryAfter.Seconds(), 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRequestQueueDrainsPendingWhenCircuitOpens(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	q, _, _ := newTestQueue(t, transportFunc(func(ctx context.Context, url string) (*Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-release
		}
		return &Response{Status: http.StatusTooManyRequests}, nil
	}))

	errs := make(chan error, 3)
	go func() {
		_, err := q.Enqueue(context.Background(), "a")
		errs <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	for _, u := range []string{"b", "c"} {
		go func(u string) {
			_, err := q.Enqueue(context.Background(), u)
			errs <- err
		}(u)
	}
	require.Eventually(t, func() bool { return q.Pending() == 2 }, time.Second, time.Millisecond)
	close(release)

	var rateLimited, circuitOpen int
	for i := 0; i < 3; i++ {
		err := <-errs
		var rateErr *RateLimitError
		switch {
		case errors.As(err, &rateErr):
			rateLimited++
		default:
			if _, ok := IsCircuitOpen(err); ok {
				circuitOpen++
			}
		}
	}
	assert.Equal(t, 1, rateLimited)
	assert.Equal(t, 2, circuitOpen)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Zero(t, q.Pending())
}

func TestRequestQueueCircuitRecoversAfterCooldown(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	q, clock, _ := newTestQueue(t, transportFunc(func(ctx context.Context, url string) (*Response, error) {
		if failing.Load() {
			return &Response{Status: http.StatusServiceUnavailable, Body: []byte("down")}, nil
		}
		return okResponse(`{"ok":true}`), nil
	}))

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(context.Background(), "http://example/x")
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusServiceUnavailable, httpErr.Status)
	}
	require.True(t, q.Status().Circuit.Open)

	clock.Advance(5*time.Minute + time.Second)
	failing.Store(false)

	out, err := q.Enqueue(context.Background(), "http://example/x")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(out.Body))

	status := q.Status()
	assert.False(t, status.Circuit.Open)
	assert.Zero(t, status.Circuit.ConsecutiveFailures)
	assert.Nil(t, status.Circuit.OpenUntil)
}

func TestRequestQueueClientErrorsLeaveBreakerAlone(t *testing.T) {
	q, _, _ := newTestQueue(t, transportFunc(func(ctx context.Context, url string) (*Response, error) {
		return &Response{Status: http.StatusNotFound, Body: []byte("missing")}, nil
	}))

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(context.Background(), "http://example/404")
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
	}
	status := q.Status()
	assert.False(t, status.Circuit.Open)
	assert.Zero(t, status.Circuit.ConsecutiveFailures)
	assert.Equal(t, 5, status.Outcomes.Failures)
}

func TestRequestQueueNetworkErrorsCountTowardBreaker(t *testing.T) {
	q, _, _ := newTestQueue(t, transportFunc(func(ctx context.Context, url string) (*Response, error) {
		return nil, errors.New("connection refused")
	}))

	_, err := q.Enqueue(context.Background(), "http://example/x")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 1, q.Status().Circuit.ConsecutiveFailures)
}

func TestRequestQueueCancelledCallerIsRemoved(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	q, _, _ := newTestQueue(t, transportFunc(func(ctx context.Context, url string) (*Response, error) {
		atomic.AddInt32(&calls, 1)
		if url == "blocker" {
			<-release
		}
		return okResponse(`{}`), nil
	}))

	go func() { _, _ = q.Enqueue(context.Background(), "blocker") }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := q.Enqueue(ctx, "abandoned")
		errs <- err
	}()
	require.Eventually(t, func() bool { return q.Pending() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)
	assert.Zero(t, q.Pending())

	close(release)
	_, err := q.Enqueue(context.Background(), "after")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRequestQueueCancelledDuringBackoffIsNotRetried(t *testing.T) {
	var calls int32
	q, _, _ := newTestQueue(t, transportFunc(func(ctx context.Context, url string) (*Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return &Response{Status: http.StatusTooManyRequests}, nil
		}
		return okResponse(`{}`), nil
	}))
	sleeping := make(chan struct{})
	resume := make(chan struct{})
	q.sleep = func(ctx context.Context, d time.Duration) error {
		close(sleeping)
		<-resume
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := q.Enqueue(ctx, "limited")
		errs <- err
	}()
	<-sleeping
	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)
	close(resume)

	_, err := q.Enqueue(context.Background(), "after")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Zero(t, q.Pending())
}

func TestRequestQueueRejectsAfterShutdown(t *testing.T) {
	q := NewRequestQueue(transportFunc(func(ctx context.Context, url string) (*Response, error) {
		return okResponse(`{}`), nil
	}), testQueueConfig(), noop.NewTracerProvider().Tracer("test"), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	_, err := q.Enqueue(context.Background(), "late")
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestRequestQueueSingleDispatcher(t *testing.T) {
	q, _, _ := newTestQueue(t, transportFunc(func(ctx context.Context, url string) (*Response, error) {
		return okResponse(`{}`), nil
	}))
	require.Eventually(t, func() bool { return q.running.Load() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, q.Run(context.Background()), errDispatcherRunning)
}

func TestBackoffDelay(t *testing.T) {
	base := 5 * time.Second
	assert.Equal(t, 10*time.Second, BackoffDelay(base, 1))
	assert.Equal(t, 20*time.Second, BackoffDelay(base, 2))
	assert.Less(t, BackoffDelay(base, 1), BackoffDelay(base, 2))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://api.polygon.io/v2/last/trade/SPY?apiKey=REDACTED",
		redactURL("https://api.polygon.io/v2/last/trade/SPY?apiKey=abc123"))
	assert.Equal(t, "https://api.polygon.io/v2/x", redactURL("https://api.polygon.io/v2/x"))
}
