package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconciliationMetrics tracks how payment confirmations converge across the
// webhook and client verification channels.
type ReconciliationMetrics struct {
	outcomes *prometheus.CounterVec
	webhooks *prometheus.CounterVec
}

// NewReconciliationMetrics registers the reconciliation counters on the
// provided registerer.
func NewReconciliationMetrics(reg prometheus.Registerer) *ReconciliationMetrics {
	if reg == nil {
		return &ReconciliationMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciliation_total",
		Help: "Payment reconciliation attempts by channel and outcome.",
	}, []string{"channel", "outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Provider webhook deliveries by event type and outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(outcomes, webhooks)
	return &ReconciliationMetrics{
		outcomes: outcomes,
		webhooks: webhooks,
	}
}

// IncOutcome records one reconciliation attempt for a channel
// ("webhook" or "client") with its outcome ("confirmed", "duplicate",
// "mismatch", "failed").
func (m *ReconciliationMetrics) IncOutcome(channel, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(channel), normalizeLabel(outcome)).Inc()
}

// IncWebhook records one webhook delivery by event type and outcome
// ("handled", "duplicate", "rejected", "error").
func (m *ReconciliationMetrics) IncWebhook(eventType, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
