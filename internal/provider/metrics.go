package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes request queue behaviour to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests    *prometheus.CounterVec
	latency     prometheus.Histogram
	retries     prometheus.Counter
	queueDepth  prometheus.Gauge
	circuitOpen prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optionscout",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Provider HTTP attempts by result.",
		}, []string{"result"}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "optionscout",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Provider HTTP attempt latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "optionscout",
			Subsystem: "provider",
			Name:      "retries_total",
			Help:      "Requests re-queued after a 429.",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "optionscout",
			Subsystem: "provider",
			Name:      "queue_depth",
			Help:      "Requests waiting for dispatch.",
		}),
		circuitOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "optionscout",
			Subsystem: "provider",
			Name:      "circuit_open",
			Help:      "1 while the circuit breaker is open.",
		}),
	}
}

func (m *Metrics) observeAttempt(result string, latency time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
	if latency > 0 {
		m.latency.Observe(latency.Seconds())
	}
}

func (m *Metrics) incRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) setDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) setCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.circuitOpen.Set(1)
		return
	}
	m.circuitOpen.Set(0)
}
