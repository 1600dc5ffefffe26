package provider

import (
	"net/http"
	"sync"
	"time"

	"optionscout/internal/domain"
)

// RequestOutcome is the terminal result of one queued request.
type RequestOutcome struct {
	ID          string
	URL         string
	HTTPStatus  int
	Latency     time.Duration
	Attempts    int
	CompletedAt time.Time
	Body        []byte
	Err         error
}

func (o RequestOutcome) LatencyMs() int64 {
	return o.Latency.Milliseconds()
}

type outcomeEntry struct {
	status      int
	latency     time.Duration
	failed      bool
	completedAt time.Time
}

// OutcomeLog keeps a bounded, time-limited record of provider call attempts for
// status reporting. Bodies are not retained.
type OutcomeLog struct {
	mu        sync.Mutex
	entries   []outcomeEntry
	maxSize   int
	retention time.Duration
}

func NewOutcomeLog(maxSize int, retention time.Duration) *OutcomeLog {
	if maxSize <= 0 {
		maxSize = 500
	}
	if retention <= 0 {
		retention = 15 * time.Minute
	}
	return &OutcomeLog{maxSize: maxSize, retention: retention}
}

func (l *OutcomeLog) Record(status int, latency time.Duration, failed bool, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, outcomeEntry{
		status:      status,
		latency:     latency,
		failed:      failed,
		completedAt: at,
	})
	if over := len(l.entries) - l.maxSize; over > 0 {
		l.entries = append(l.entries[:0], l.entries[over:]...)
	}
	l.pruneLocked(at)
}

// Summary aggregates entries still inside the retention window at now.
func (l *OutcomeLog) Summary(now time.Time) domain.OutcomeSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(now)

	var summary domain.OutcomeSummary
	var totalLatency time.Duration
	for _, e := range l.entries {
		summary.Total++
		totalLatency += e.latency
		if e.failed {
			summary.Failures++
		} else {
			summary.Successes++
		}
		if e.status == http.StatusTooManyRequests {
			summary.RateLimited++
		}
	}
	if summary.Total > 0 {
		summary.AvgLatencyMs = float64(totalLatency.Milliseconds()) / float64(summary.Total)
		summary.RateLimitRate = float64(summary.RateLimited) / float64(summary.Total)
	}
	return summary
}

func (l *OutcomeLog) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.retention)
	i := 0
	for i < len(l.entries) && l.entries[i].completedAt.Before(cutoff) {
		i++
	}
	if i > 0 {
		l.entries = append(l.entries[:0], l.entries[i:]...)
	}
}
