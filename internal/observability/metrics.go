package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's instruments. Labels stay low-cardinality:
// connector and flow names come from closed sets, status is the coarse
// outcome bucket.
type Metrics struct {
	Registry *prometheus.Registry

	externalCalls   *prometheus.CounterVec
	externalLatency *prometheus.HistogramVec
	blockedFlows    *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
}

// NewMetrics builds and registers the instruments on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		externalCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_external_calls_total",
			Help: "Outbound connector calls by connector, flow and outcome.",
		}, []string{"connector", "flow", "outcome"}),
		externalLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_external_call_duration_seconds",
			Help:    "Outbound connector call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"connector", "flow"}),
		blockedFlows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_blocked_flows_total",
			Help: "Flows stopped before the network by policy or validation.",
		}, []string{"connector", "flow", "reason"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_webhook_events_total",
			Help: "Inbound webhook notifications by connector and event type.",
		}, []string{"connector", "event_type"}),
	}
	reg.MustRegister(m.externalCalls, m.externalLatency, m.blockedFlows, m.webhookEvents)
	return m
}

// ObserveExternalCall records one completed connector call.
func (m *Metrics) ObserveExternalCall(connector, flow, outcome string, elapsed time.Duration) {
	m.externalCalls.WithLabelValues(connector, flow, outcome).Inc()
	m.externalLatency.WithLabelValues(connector, flow).Observe(elapsed.Seconds())
}

// ObserveBlockedFlow records a flow stopped before any network activity.
func (m *Metrics) ObserveBlockedFlow(connector, flow, reason string) {
	m.blockedFlows.WithLabelValues(connector, flow, reason).Inc()
}

// ObserveWebhookEvent records one classified inbound notification.
func (m *Metrics) ObserveWebhookEvent(connector, eventType string) {
	m.webhookEvents.WithLabelValues(connector, eventType).Inc()
}
