package trino

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts statements and HTTP round trips to the coordinator.
type Metrics struct {
	statements *prometheus.CounterVec
	requests   *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewMetrics creates the client metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fedunion",
			Subsystem: "trino",
			Name:      "statements_total",
			Help:      "Statements submitted to Trino, by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fedunion",
			Subsystem: "trino",
			Name:      "http_requests_total",
			Help:      "HTTP requests sent to the Trino coordinator, by status code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fedunion",
			Subsystem: "trino",
			Name:      "statement_duration_seconds",
			Help:      "Wall time from submission to the last page of a statement.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.statements, m.requests, m.duration)
	}
	return m
}

func (m *Metrics) observeRequest(code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *Metrics) observeStatement(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.statements.WithLabelValues(outcome).Inc()
	m.duration.Observe(seconds)
}
