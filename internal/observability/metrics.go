package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for the router's operability story:
// per-agent outcomes, blob-store append contention, and health-probe
// gauges. It is deliberately narrow compared to a general-purpose gateway's
// metrics surface — there is no message/session/channel dimension here,
// only the six components this repository actually has.
type Metrics struct {
	// ProcessorOutcomes counts Agent Processor results.
	// Labels: agent (journal|memory|repository), status (success|failure|skipped)
	ProcessorOutcomes *prometheus.CounterVec

	// ProcessorDuration measures processor wall-clock time in seconds.
	// Labels: agent
	ProcessorDuration *prometheus.HistogramVec

	// BlobAppendRetries counts AppendLine calls that needed more than one
	// conditional-write attempt, once per call, by final outcome.
	// Labels: outcome (succeeded|exhausted; exhausted covers any final error)
	BlobAppendRetries *prometheus.CounterVec

	// ClassifierDecisions counts routing decisions by the mode that
	// ultimately produced them (path_hint|content|keyword_fallback).
	ClassifierDecisions *prometheus.CounterVec

	// ModelInvocations counts Model Adapter calls by outcome.
	// Labels: outcome (success|retry|timeout|error)
	ModelInvocations *prometheus.CounterVec

	// EventsProcessed counts Orchestrator runs by terminal state.
	// Labels: result (done|failed)
	EventsProcessed *prometheus.CounterVec

	// HealthBlob, HealthSecrets, HealthModel mirror the synchronous
	// health() probe's three checks as scrape-friendly gauges (1 = ok).
	HealthBlob    prometheus.Gauge
	HealthSecrets prometheus.Gauge
	HealthModel   prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// NewMetrics returns the router's metric set, registered against the
// default Prometheus registry. Registration happens on the first call
// only; every later call returns that same set, since registering the
// same metric names twice on one registry panics.
func NewMetrics() *Metrics {
	defaultMetricsOnce.Do(func() { defaultMetrics = newMetrics() })
	return defaultMetrics
}

func newMetrics() *Metrics {
	return &Metrics{
		ProcessorOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "router_processor_outcomes_total",
			Help: "Agent processor results by agent and status.",
		}, []string{"agent", "status"}),
		ProcessorDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "router_processor_duration_seconds",
			Help:    "Agent processor wall-clock duration.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"agent"}),
		BlobAppendRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "router_blob_append_retries_total",
			Help: "Append-line calls that needed more than one conditional-write attempt, by outcome.",
		}, []string{"outcome"}),
		ClassifierDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "router_classifier_decisions_total",
			Help: "Routing decisions by the classifier mode that produced them.",
		}, []string{"mode"}),
		ModelInvocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "router_model_invocations_total",
			Help: "Model adapter invocations by outcome.",
		}, []string{"outcome"}),
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "router_events_processed_total",
			Help: "Orchestrator runs by terminal state.",
		}, []string{"result"}),
		HealthBlob: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "router_health_blob",
			Help: "1 if the last health probe's blob store check succeeded.",
		}),
		HealthSecrets: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "router_health_secrets",
			Help: "1 if the last health probe's secret adapter check succeeded.",
		}),
		HealthModel: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "router_health_model",
			Help: "1 if the last health probe's model adapter check succeeded.",
		}),
	}
}

func boolGauge(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// SetHealth updates the three health gauges from a health probe result.
func (m *Metrics) SetHealth(blobOK, secretsOK, modelOK bool) {
	m.HealthBlob.Set(boolGauge(blobOK))
	m.HealthSecrets.Set(boolGauge(secretsOK))
	m.HealthModel.Set(boolGauge(modelOK))
}
