package provider

import (
	"container/list"
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"optionscout/internal/domain"
)

var errDispatcherRunning = errors.New("request queue dispatcher already running")

type QueueConfig struct {
	MinInterval      time.Duration
	RequestTimeout   time.Duration
	FailureThreshold int
	CircuitCooldown  time.Duration
	BackoffBase      time.Duration
	OutcomeRetention time.Duration
	OutcomeLogSize   int
}

type queuedRequest struct {
	id         string
	url        string
	enqueuedAt time.Time
	attempts   int
	done       chan RequestOutcome
	elem       *list.Element
	abandoned  bool
}

// RequestQueue serializes every outbound provider call through a single dispatcher.
// Calls are spaced by the rate limiter, gated by the circuit breaker and retried with
// exponential backoff on 429. Each enqueued request receives exactly one outcome.
type RequestQueue struct {
	transport Transport
	breaker   *CircuitBreaker
	limiter   *RateLimiter
	outcomes  *OutcomeLog
	metrics   *Metrics
	tracer    trace.Tracer
	log       *zap.Logger
	cfg       QueueConfig

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
	newID func() string

	mu      sync.Mutex
	pending *list.List
	closed  bool
	wake    chan struct{}
	running atomic.Bool
}

func NewRequestQueue(transport Transport, cfg QueueConfig, tracer trace.Tracer, log *zap.Logger, metrics *Metrics) *RequestQueue {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	breaker := NewCircuitBreaker(cfg.FailureThreshold, cfg.CircuitCooldown)
	cfg.FailureThreshold = breaker.Threshold()

	return &RequestQueue{
		transport: transport,
		breaker:   breaker,
		limiter:   NewRateLimiter(cfg.MinInterval),
		outcomes:  NewOutcomeLog(cfg.OutcomeLogSize, cfg.OutcomeRetention),
		metrics:   metrics,
		tracer:    tracer,
		log:       log.Named("request_queue"),
		cfg:       cfg,
		now:       time.Now,
		sleep:     sleepContext,
		newID:     func() string { return uuid.NewString() },
		pending:   list.New(),
		wake:      make(chan struct{}, 1),
	}
}

// Enqueue appends a GET for rawURL and blocks until its outcome is available or ctx
// ends. A request still waiting when ctx ends is removed from the queue, as is one
// sleeping through a 429 backoff. One already in flight completes in the background
// and its result is discarded.
func (q *RequestQueue) Enqueue(ctx context.Context, rawURL string) (RequestOutcome, error) {
	ctx, span := q.tracer.Start(ctx, "provider.enqueue")
	defer span.End()

	req := &queuedRequest{
		id:         q.newID(),
		url:        rawURL,
		enqueuedAt: q.now(),
		done:       make(chan RequestOutcome, 1),
	}
	span.SetAttributes(attribute.String("request.id", req.id))

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return RequestOutcome{ID: req.id, URL: rawURL, Err: ErrQueueClosed}, ErrQueueClosed
	}
	req.elem = q.pending.PushBack(req)
	depth := q.pending.Len()
	q.mu.Unlock()

	q.metrics.setDepth(depth)
	q.signal()

	select {
	case out := <-req.done:
		if out.Err != nil {
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, out.Err.Error())
		}
		span.SetAttributes(attribute.Int("http.status_code", out.HTTPStatus))
		return out, out.Err
	case <-ctx.Done():
		q.remove(req)
		return RequestOutcome{ID: req.id, URL: rawURL, Err: ctx.Err()}, ctx.Err()
	}
}

// Run dispatches queued requests one at a time until ctx is cancelled. Requests still
// pending at shutdown fail with ErrQueueClosed.
func (q *RequestQueue) Run(ctx context.Context) error {
	if !q.running.CompareAndSwap(false, true) {
		return errDispatcherRunning
	}
	defer q.shutdown()

	q.log.Info("dispatcher started",
		zap.Duration("min_interval", q.cfg.MinInterval),
		zap.Int("failure_threshold", q.cfg.FailureThreshold),
	)
	for {
		req := q.next(ctx)
		if req == nil {
			q.log.Info("dispatcher stopped")
			return nil
		}
		q.dispatch(ctx, req)
	}
}

func (q *RequestQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

func (q *RequestQueue) Status() domain.QueueStatus {
	now := q.now()
	return domain.QueueStatus{
		Circuit:  q.breaker.State(now),
		Pending:  q.Pending(),
		Outcomes: q.outcomes.Summary(now),
	}
}

func (q *RequestQueue) dispatch(ctx context.Context, req *queuedRequest) {
	now := q.now()
	if wait, ok := q.breaker.Allow(now); !ok {
		q.finish(req, RequestOutcome{Err: &CircuitOpenError{OpenUntil: now.Add(wait), RetryAfter: wait}})
		return
	}
	q.metrics.setCircuitOpen(false)

	if err := q.limiter.Wait(ctx); err != nil {
		q.finish(req, RequestOutcome{Err: err})
		return
	}

	req.attempts++
	callCtx, cancel := context.WithTimeout(ctx, q.cfg.RequestTimeout)
	resp, err := q.transport.Get(callCtx, req.url)
	cancel()
	completed := q.now()

	if err != nil {
		if ctx.Err() != nil {
			q.finish(req, RequestOutcome{Err: ctx.Err(), CompletedAt: completed})
			return
		}
		q.record(req, 0, 0, err, completed)
		if _, tripped := q.breaker.RecordFailure(completed); tripped {
			q.trip(completed)
		}
		q.finish(req, RequestOutcome{Err: &NetworkError{Err: err}, CompletedAt: completed})
		return
	}

	out := RequestOutcome{HTTPStatus: resp.Status, Latency: resp.Latency, CompletedAt: completed}
	switch {
	case resp.Status >= 200 && resp.Status < 300:
		q.record(req, resp.Status, resp.Latency, nil, completed)
		q.breaker.RecordSuccess()
		out.Body = resp.Body
		q.finish(req, out)

	case resp.Status == http.StatusTooManyRequests:
		q.record(req, resp.Status, resp.Latency, errRateLimited, completed)
		failures, tripped := q.breaker.RecordFailure(completed)
		if tripped || req.attempts >= q.cfg.FailureThreshold {
			if tripped {
				q.trip(completed)
			}
			out.Err = &RateLimitError{URL: redactURL(req.url), Attempts: req.attempts}
			q.finish(req, out)
			return
		}
		q.retry(ctx, req, failures)

	case resp.Status >= 500:
		httpErr := &HTTPError{Status: resp.Status, Body: string(resp.Body)}
		q.record(req, resp.Status, resp.Latency, httpErr, completed)
		if _, tripped := q.breaker.RecordFailure(completed); tripped {
			q.trip(completed)
		}
		out.Err = httpErr
		q.finish(req, out)

	default:
		httpErr := &HTTPError{Status: resp.Status, Body: string(resp.Body)}
		q.record(req, resp.Status, resp.Latency, httpErr, completed)
		out.Err = httpErr
		q.finish(req, out)
	}
}

var errRateLimited = errors.New("rate limited")

// BackoffDelay is the wait before retrying after the k-th consecutive failure.
func BackoffDelay(base time.Duration, failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	return base * time.Duration(int64(1)<<uint(failures))
}

func (q *RequestQueue) retry(ctx context.Context, req *queuedRequest, failures int) {
	delay := BackoffDelay(q.cfg.BackoffBase, failures)
	q.log.Warn("rate limited, backing off",
		zap.String("request_id", req.id),
		zap.String("url", redactURL(req.url)),
		zap.Int("consecutive_failures", failures),
		zap.Duration("backoff", delay),
	)
	q.metrics.incRetry()

	if err := q.sleep(ctx, delay); err != nil {
		q.finish(req, RequestOutcome{Err: err})
		return
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.finish(req, RequestOutcome{Err: ErrQueueClosed})
		return
	}
	if req.abandoned {
		q.mu.Unlock()
		q.log.Debug("dropping abandoned request", zap.String("request_id", req.id))
		q.finish(req, RequestOutcome{Err: context.Canceled})
		return
	}
	req.elem = q.pending.PushFront(req)
	depth := q.pending.Len()
	q.mu.Unlock()
	q.metrics.setDepth(depth)
}

// trip fails every pending request once the breaker opens.
func (q *RequestQueue) trip(now time.Time) {
	state := q.breaker.State(now)
	retryAfter := q.cfg.CircuitCooldown
	openUntil := now.Add(retryAfter)
	if state.OpenUntil != nil {
		openUntil = *state.OpenUntil
		retryAfter = openUntil.Sub(now)
	}
	q.metrics.setCircuitOpen(true)

	drained := q.drain()
	q.log.Error("circuit breaker opened",
		zap.Int("consecutive_failures", state.ConsecutiveFailures),
		zap.Time("open_until", openUntil),
		zap.Int("drained", len(drained)),
	)
	for _, req := range drained {
		q.finish(req, RequestOutcome{Err: &CircuitOpenError{OpenUntil: openUntil, RetryAfter: retryAfter}})
	}
}

func (q *RequestQueue) drain() []*queuedRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := make([]*queuedRequest, 0, q.pending.Len())
	for e := q.pending.Front(); e != nil; {
		next := e.Next()
		req := q.pending.Remove(e).(*queuedRequest)
		req.elem = nil
		drained = append(drained, req)
		e = next
	}
	q.metrics.setDepth(0)
	return drained
}

func (q *RequestQueue) next(ctx context.Context) *queuedRequest {
	for {
		q.mu.Lock()
		if front := q.pending.Front(); front != nil {
			req := q.pending.Remove(front).(*queuedRequest)
			req.elem = nil
			depth := q.pending.Len()
			q.mu.Unlock()
			q.metrics.setDepth(depth)
			return req
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-q.wake:
		}
	}
}

// remove takes req out of the pending list. A request that is not listed is either
// in flight or backing off; it is marked so a backoff does not re-queue it.
func (q *RequestQueue) remove(req *queuedRequest) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if req.elem == nil {
		req.abandoned = true
		return false
	}
	q.pending.Remove(req.elem)
	req.elem = nil
	q.metrics.setDepth(q.pending.Len())
	return true
}

func (q *RequestQueue) shutdown() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	for _, req := range q.drain() {
		q.finish(req, RequestOutcome{Err: ErrQueueClosed})
	}
	q.running.Store(false)
}

func (q *RequestQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *RequestQueue) record(req *queuedRequest, status int, latency time.Duration, err error, at time.Time) {
	q.outcomes.Record(status, latency, err != nil, at)

	result := "success"
	switch {
	case status == http.StatusTooManyRequests:
		result = "rate_limited"
	case status == 0 && err != nil:
		result = "network_error"
	case err != nil:
		result = "http_error"
	}
	q.metrics.observeAttempt(result, latency)

	fields := []zap.Field{
		zap.String("request_id", req.id),
		zap.String("url", redactURL(req.url)),
		zap.Int("status", status),
		zap.Duration("latency", latency),
		zap.Int("attempt", req.attempts),
		zap.Duration("since_enqueue", at.Sub(req.enqueuedAt)),
	}
	if err != nil {
		q.log.Warn("provider request failed", append(fields, zap.Error(err))...)
		return
	}
	q.log.Debug("provider request", fields...)
}

func (q *RequestQueue) finish(req *queuedRequest, out RequestOutcome) {
	out.ID = req.id
	out.URL = req.url
	out.Attempts = req.attempts
	if out.CompletedAt.IsZero() {
		out.CompletedAt = q.now()
	}
	select {
	case req.done <- out:
	default:
	}
}

// redactURL hides the provider API key before a URL is logged or surfaced.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := u.Query()
	if query.Get("apiKey") == "" {
		return raw
	}
	query.Set("apiKey", "REDACTED")
	u.RawQuery = query.Encode()
	return u.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
