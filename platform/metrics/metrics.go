// Package metrics exposes prometheus instrumentation for the relay pipeline.
// This is part of the platform layer and contains no business logic.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics exposes counters for the ingestion and dispatch flows.
type RelayMetrics struct {
	leadsIngested      *prometheus.CounterVec
	signalsSent        *prometheus.CounterVec
	dispatchFailures   *prometheus.CounterVec
	notificationsSent  *prometheus.CounterVec
	webhookLatency     *prometheus.HistogramVec
}

// New registers and returns the relay metrics on the given registerer.
// Passing nil uses the default registerer.
func New(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		leadsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadsignal",
			Subsystem: "ingest",
			Name:      "leads_total",
			Help:      "Total webhook lead notifications processed",
		}, []string{"outcome"}),
		signalsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadsignal",
			Subsystem: "dispatch",
			Name:      "signals_sent_total",
			Help:      "Total conversion events delivered to the ads platform",
		}, []string{"channel", "qualification"}),
		dispatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadsignal",
			Subsystem: "dispatch",
			Name:      "failures_total",
			Help:      "Total conversion event dispatch failures",
		}, []string{"channel", "reason"}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadsignal",
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total notifications dispatched per channel",
		}, []string{"channel", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadsignal",
			Subsystem: "ingest",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of webhook change processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.leadsIngested, m.signalsSent, m.dispatchFailures, m.notificationsSent, m.webhookLatency)
	return m
}

// Ingest outcomes.
const (
	IngestCreated   = "created"
	IngestDuplicate = "duplicate"
	IngestNoTenant  = "no_tenant"
	IngestFailed    = "failed"
)

// ObserveIngest records a processed webhook change.
func (m *RelayMetrics) ObserveIngest(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.leadsIngested.WithLabelValues(outcome).Inc()
	m.webhookLatency.WithLabelValues(outcome).Observe(seconds)
}

// ObserveSignalSent records a successful conversion event delivery.
func (m *RelayMetrics) ObserveSignalSent(channel, qualification string) {
	if m == nil {
		return
	}
	m.signalsSent.WithLabelValues(channel, qualification).Inc()
}

// ObserveDispatchFailure records a failed dispatch attempt.
func (m *RelayMetrics) ObserveDispatchFailure(channel, reason string) {
	if m == nil {
		return
	}
	m.dispatchFailures.WithLabelValues(channel, reason).Inc()
}

// ObserveNotification records a notification channel attempt.
func (m *RelayMetrics) ObserveNotification(channel, status string) {
	if m == nil {
		return
	}
	m.notificationsSent.WithLabelValues(channel, status).Inc()
}
