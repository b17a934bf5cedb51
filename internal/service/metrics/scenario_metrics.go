package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ScenarioLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pricelens",
			Subsystem: "scenarios",
			Name:      "latency_seconds",
			Help:      "Latency of scenario endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ScenarioErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pricelens",
			Subsystem: "scenarios",
			Name:      "errors_total",
			Help:      "Errors by scenario endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ScenarioLatency, ScenarioErrors)
	})
}
