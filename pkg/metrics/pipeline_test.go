package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveEventCountsByKindAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.ObserveEvent("quiz_attempt_submitted", OutcomeAccepted)
	m.ObserveEvent("quiz_attempt_submitted", OutcomeAccepted)
	m.ObserveEvent("role_assigned", OutcomeDiscarded)

	accepted, err := counterValue(reg, "datasender_events_total", map[string]string{
		"kind":    "quiz_attempt_submitted",
		"outcome": OutcomeAccepted,
	})
	if err != nil {
		t.Fatal(err)
	}
	if accepted != 2 {
		t.Fatalf("expected 2 accepted, got %v", accepted)
	}

	discarded, err := counterValue(reg, "datasender_events_total", map[string]string{
		"kind":    "role_assigned",
		"outcome": OutcomeDiscarded,
	})
	if err != nil {
		t.Fatal(err)
	}
	if discarded != 1 {
		t.Fatalf("expected 1 discarded, got %v", discarded)
	}
}

func TestObserveDispatchRecordsSample(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.ObserveDispatch("marker_updated", 120*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	mf := findMetricFamily(mfs, "datasender_dispatch_duration_seconds")
	if mf == nil {
		t.Fatalf("histogram not registered")
	}
	if mf.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one sample")
	}
}

func TestEmptyLabelNormalized(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.IncDispatchFailure("")

	value, err := counterValue(reg, "datasender_dispatch_failures_total", map[string]string{"kind": "unknown"})
	if err != nil {
		t.Fatal(err)
	}
	if value != 1 {
		t.Fatalf("expected 1 failure under unknown, got %v", value)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewPipelineMetrics(nil)
	m.ObserveEvent("x", OutcomeAccepted)
	m.ObserveDispatch("x", time.Second)
	m.IncDispatchFailure("x")
}

func counterValue(reg *prometheus.Registry, name string, labels map[string]string) (float64, error) {
	mfs, err := reg.Gather()
	if err != nil {
		return 0, err
	}
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		matched := true
		for k, v := range labels {
			if !matchesLabel(metric.GetLabel(), k, v) {
				matched = false
				break
			}
		}
		if matched {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("counter %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
