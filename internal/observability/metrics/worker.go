package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	recomputeTotal    *prometheus.CounterVec
	recomputeDuration *prometheus.HistogramVec
	recomputeInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	recomputeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lps",
			Subsystem: "worker",
			Name:      "aggregate_recompute_total",
			Help:      "Total aggregate recomputations by status.",
		},
		[]string{"service", "status"},
	)
	recomputeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lps",
			Subsystem: "worker",
			Name:      "aggregate_recompute_duration_seconds",
			Help:      "Aggregate recomputation duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	recomputeInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lps",
			Subsystem: "worker",
			Name:      "aggregate_recompute_in_flight",
			Help:      "Number of in-flight aggregate recomputations.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(recomputeTotal, recomputeDuration, recomputeInFlight)

	return &WorkerMetrics{
		registry:          registry,
		recomputeTotal:    recomputeTotal,
		recomputeDuration: recomputeDuration,
		recomputeInFlight: recomputeInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRecompute() {
	m.recomputeInFlight.Inc()
}

func (m *WorkerMetrics) FinishRecompute(service string, duration time.Duration, err error) {
	m.recomputeInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.recomputeTotal.WithLabelValues(service, status).Inc()
	m.recomputeDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}
