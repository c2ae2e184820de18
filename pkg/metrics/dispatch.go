package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics records delivery outcomes for the webhook dispatch worker.
type DispatchMetrics struct {
	duration  *prometheus.HistogramVec
	delivered *prometheus.CounterVec
	exhausted *prometheus.CounterVec
	attempts  *prometheus.HistogramVec
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_dispatch_duration_seconds",
		Help:    "Duration of webhook dispatch invocations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"consumer"})
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_dispatch_delivered",
		Help: "Webhook deliveries that received a 2xx response.",
	}, []string{"consumer"})
	exhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_dispatch_exhausted",
		Help: "Webhook deliveries that failed every attempt.",
	}, []string{"consumer"})
	attempts := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_dispatch_attempts",
		Help:    "Number of HTTP attempts per dispatch invocation.",
		Buckets: []float64{1, 2, 3},
	}, []string{"consumer"})
	reg.MustRegister(duration, delivered, exhausted, attempts)
	return &DispatchMetrics{
		duration:  duration,
		delivered: delivered,
		exhausted: exhausted,
		attempts:  attempts,
	}
}

// ObserveDuration records the wall-clock duration of one dispatch invocation.
func (d *DispatchMetrics) ObserveDuration(consumer string, duration time.Duration) {
	if d == nil || d.duration == nil {
		return
	}
	d.duration.WithLabelValues(normalizeLabel(consumer)).Observe(duration.Seconds())
}

// IncDelivered increments the delivered counter for the named consumer.
func (d *DispatchMetrics) IncDelivered(consumer string) {
	if d == nil || d.delivered == nil {
		return
	}
	d.delivered.WithLabelValues(normalizeLabel(consumer)).Inc()
}

// IncExhausted increments the exhausted counter for the named consumer.
func (d *DispatchMetrics) IncExhausted(consumer string) {
	if d == nil || d.exhausted == nil {
		return
	}
	d.exhausted.WithLabelValues(normalizeLabel(consumer)).Inc()
}

// ObserveAttempts records how many HTTP attempts one invocation used.
func (d *DispatchMetrics) ObserveAttempts(consumer string, attempts int) {
	if d == nil || d.attempts == nil {
		return
	}
	d.attempts.WithLabelValues(normalizeLabel(consumer)).Observe(float64(attempts))
}

func normalizeLabel(consumer string) string {
	if consumer == "" {
		return "unknown"
	}
	return consumer
}
