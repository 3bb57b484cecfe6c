// Package metrics provides Prometheus metrics for the workflow agent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the agent.
type Metrics struct {
	EventsTotal        *prometheus.CounterVec
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	ReconnectsTotal    prometheus.Counter
	ConnectionsLost    prometheus.Counter
	NoticesTotal       *prometheus.CounterVec
	RealtimeConnected  prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_events_total",
				Help: "Total realtime events applied, by event name.",
			},
			[]string{"event"},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_api_requests_total",
				Help: "Total backend API calls by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "workflow_api_request_duration_seconds",
				Help:    "Backend API call duration by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ReconnectsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "workflow_realtime_reconnect_attempts_total",
				Help: "Total realtime reconnection attempts.",
			},
		),
		ConnectionsLost: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "workflow_realtime_connections_lost_total",
				Help: "Total times the realtime channel was lost terminally.",
			},
		),
		NoticesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_notices_total",
				Help: "Total user-facing notices by level.",
			},
			[]string{"level"},
		),
		RealtimeConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "workflow_realtime_connected",
				Help: "1 when the realtime channel is connected, else 0.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.EventsTotal)
	reg.MustRegister(m.APIRequestsTotal)
	reg.MustRegister(m.APIRequestDuration)
	reg.MustRegister(m.ReconnectsTotal)
	reg.MustRegister(m.ConnectionsLost)
	reg.MustRegister(m.NoticesTotal)
	reg.MustRegister(m.RealtimeConnected)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEvent increments the applied-event counter.
func (m *Metrics) RecordEvent(event string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(event).Inc()
}

// RecordAPIRequest increments the API call counter.
func (m *Metrics) RecordAPIRequest(operation, outcome string) {
	if m == nil {
		return
	}
	m.APIRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveAPIDuration records one backend API call duration in seconds.
func (m *Metrics) ObserveAPIDuration(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.APIRequestDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordNotice increments the notice counter.
func (m *Metrics) RecordNotice(level string) {
	if m == nil {
		return
	}
	m.NoticesTotal.WithLabelValues(level).Inc()
}

// RecordReconnect increments the reconnect attempt counter.
func (m *Metrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.ReconnectsTotal.Inc()
}

// RecordConnectionLost increments the terminal connection-loss counter.
func (m *Metrics) RecordConnectionLost() {
	if m == nil {
		return
	}
	m.ConnectionsLost.Inc()
}

// SetConnected reflects the realtime connection state.
func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.RealtimeConnected.Set(1)
	} else {
		m.RealtimeConnected.Set(0)
	}
}
