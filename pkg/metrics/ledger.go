package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records counters for payment/build lifecycle events.
type LedgerMetrics struct {
	paymentsConfirmed prometheus.Counter
	paymentsRejected  prometheus.Counter
	buildsTriggered   prometheus.Counter
	triggerFailures   prometheus.Counter
	buildsCompleted   *prometheus.CounterVec
	throttled         *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
// A nil registerer yields a no-op collector, which keeps tests quiet.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	paymentsConfirmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sitewrap_payments_confirmed_total",
		Help: "Payments confirmed by an operator.",
	})
	paymentsRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sitewrap_payments_rejected_total",
		Help: "Payments rejected by an operator.",
	})
	buildsTriggered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sitewrap_builds_triggered_total",
		Help: "Build pipeline trigger attempts.",
	})
	triggerFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sitewrap_build_trigger_failures_total",
		Help: "Build pipeline triggers that failed to dispatch.",
	})
	buildsCompleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitewrap_builds_completed_total",
		Help: "Build callbacks applied, by outcome.",
	}, []string{"outcome"})
	throttled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitewrap_requests_throttled_total",
		Help: "Requests rejected by the rate limiter, by scope.",
	}, []string{"scope"})
	reg.MustRegister(paymentsConfirmed, paymentsRejected, buildsTriggered, triggerFailures, buildsCompleted, throttled)
	return &LedgerMetrics{
		paymentsConfirmed: paymentsConfirmed,
		paymentsRejected:  paymentsRejected,
		buildsTriggered:   buildsTriggered,
		triggerFailures:   triggerFailures,
		buildsCompleted:   buildsCompleted,
		throttled:         throttled,
	}
}

// IncPaymentConfirmed increments the confirmed-payments counter.
func (m *LedgerMetrics) IncPaymentConfirmed() {
	if m == nil || m.paymentsConfirmed == nil {
		return
	}
	m.paymentsConfirmed.Inc()
}

// IncPaymentRejected increments the rejected-payments counter.
func (m *LedgerMetrics) IncPaymentRejected() {
	if m == nil || m.paymentsRejected == nil {
		return
	}
	m.paymentsRejected.Inc()
}

// IncBuildTriggered increments the trigger-attempts counter.
func (m *LedgerMetrics) IncBuildTriggered() {
	if m == nil || m.buildsTriggered == nil {
		return
	}
	m.buildsTriggered.Inc()
}

// IncTriggerFailure increments the trigger-failures counter.
func (m *LedgerMetrics) IncTriggerFailure() {
	if m == nil || m.triggerFailures == nil {
		return
	}
	m.triggerFailures.Inc()
}

// IncBuildCompleted records an applied build callback by outcome.
func (m *LedgerMetrics) IncBuildCompleted(outcome string) {
	if m == nil || m.buildsCompleted == nil {
		return
	}
	m.buildsCompleted.WithLabelValues(outcome).Inc()
}

// IncThrottled records a rate-limited request for the named scope.
func (m *LedgerMetrics) IncThrottled(scope string) {
	if m == nil || m.throttled == nil {
		return
	}
	m.throttled.WithLabelValues(scope).Inc()
}
