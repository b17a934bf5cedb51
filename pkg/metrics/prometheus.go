package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	activeCustomers *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricelens_messages_sent_total",
				Help: "Total number of records sent to backend",
			},
			[]string{"backend", "tier"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricelens_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		activeCustomers: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricelens_active_customers",
				Help: "Last recorded active customer count per tier",
			},
			[]string{"tier"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricelens_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordMessageSent records a record sent to a backend.
func (r *Recorder) RecordMessageSent(backend, tier string) {
	r.messagesSent.WithLabelValues(backend, tier).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordActiveCustomers records the latest customer count for a tier.
func (r *Recorder) RecordActiveCustomers(tier string, count float64) {
	r.activeCustomers.WithLabelValues(tier).Set(count)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
