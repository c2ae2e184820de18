package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestDispatchMetricsExportsCountersAndHistograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewDispatchMetrics(reg)
	consumer := "dispatch-worker"
	metrics.ObserveDuration(consumer, 250*time.Millisecond)
	metrics.IncDelivered(consumer)
	metrics.IncExhausted(consumer)
	metrics.ObserveAttempts(consumer, 3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "webhook_dispatch_delivered", "consumer", consumer); err != nil {
		t.Fatalf("fetch delivered: %v", err)
	} else if got != 1 {
		t.Fatalf("expected delivered=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "webhook_dispatch_exhausted", "consumer", consumer); err != nil {
		t.Fatalf("fetch exhausted: %v", err)
	} else if got != 1 {
		t.Fatalf("expected exhausted=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "webhook_dispatch_duration_seconds", "consumer", consumer); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "webhook_dispatch_attempts", "consumer", consumer); err != nil {
		t.Fatalf("fetch attempts: %v", err)
	} else if got != 3 {
		t.Fatalf("expected attempts sum 3, got %f", got)
	}
}

func TestDispatchMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewDispatchMetrics(nil)
	metrics.ObserveDuration("dispatch-worker", time.Second)
	metrics.IncDelivered("dispatch-worker")
	metrics.IncExhausted("dispatch-worker")
	metrics.ObserveAttempts("dispatch-worker", 1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
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
