package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline outcomes used as metric labels.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDiscarded = "discarded"
	OutcomeFailed    = "failed"
)

// PipelineMetrics records per-event pipeline results and dispatch latency.
type PipelineMetrics struct {
	events           *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	dispatchFailures *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided
// registerer. A nil registerer produces a no-op collector, which tests use.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datasender_events_total",
		Help: "Domain events processed, by kind and outcome.",
	}, []string{"kind", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datasender_dispatch_duration_seconds",
		Help:    "Duration of CRM dispatch calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datasender_dispatch_failures_total",
		Help: "Failed CRM dispatch attempts, by kind.",
	}, []string{"kind"})
	reg.MustRegister(events, duration, failures)
	return &PipelineMetrics{
		events:           events,
		dispatchDuration: duration,
		dispatchFailures: failures,
	}
}

// ObserveEvent counts one processed event with its outcome.
func (p *PipelineMetrics) ObserveEvent(kind, outcome string) {
	if p == nil || p.events == nil {
		return
	}
	p.events.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// ObserveDispatch records the latency of one dispatch call.
func (p *PipelineMetrics) ObserveDispatch(kind string, duration time.Duration) {
	if p == nil || p.dispatchDuration == nil {
		return
	}
	p.dispatchDuration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

// IncDispatchFailure counts one failed dispatch attempt.
func (p *PipelineMetrics) IncDispatchFailure(kind string) {
	if p == nil || p.dispatchFailures == nil {
		return
	}
	p.dispatchFailures.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
