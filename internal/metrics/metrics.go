// Package metrics provides Prometheus metrics for the chat core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the server.
//
// A nil *Metrics is valid and turns every record method into a no-op, so
// tests can construct services without a registry.
type Metrics struct {
	registry *prometheus.Registry

	chatTurns          *prometheus.CounterVec
	completionFailures prometheus.Counter
	completionLatency  prometheus.Histogram
	supportEvents      *prometheus.CounterVec
	liveSessions       prometheus.Gauge
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parlor_chat_turns_total",
			Help: "Completed conversation turns by operation and use case.",
		}, []string{"op", "use_case"}),
		completionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parlor_completion_failures_total",
			Help: "Failed completion service calls.",
		}),
		completionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "parlor_completion_latency_seconds",
			Help:    "Completion service call latency.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		supportEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parlor_support_events_total",
			Help: "Support escalation events relayed, by kind.",
		}, []string{"kind"}),
		liveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parlor_live_sessions",
			Help: "Currently connected live sessions.",
		}),
	}

	registry.MustRegister(
		m.chatTurns,
		m.completionFailures,
		m.completionLatency,
		m.supportEvents,
		m.liveSessions,
	)
	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ChatTurn(op, useCase string) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(op, useCase).Inc()
}

func (m *Metrics) CompletionFailure() {
	if m == nil {
		return
	}
	m.completionFailures.Inc()
}

func (m *Metrics) CompletionSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.completionLatency.Observe(seconds)
}

func (m *Metrics) SupportEvent(kind string) {
	if m == nil {
		return
	}
	m.supportEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) SessionConnected() {
	if m == nil {
		return
	}
	m.liveSessions.Inc()
}

func (m *Metrics) SessionDisconnected() {
	if m == nil {
		return
	}
	m.liveSessions.Dec()
}
