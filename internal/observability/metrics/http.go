package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchRequestsTotal  *prometheus.CounterVec
	searchResults        *prometheus.HistogramVec
	searchShortfallTotal *prometheus.CounterVec
	searchDroppedTotal   *prometheus.CounterVec
	searchDuration       *prometheus.HistogramVec

	exclusionRefreshTotal     *prometheus.CounterVec
	exclusionSnapshotSize     prometheus.Gauge
	exclusionStaleServedTotal *prometheus.CounterVec

	feedbackRecordedTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lps",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lps",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lps",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lps",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total successful search requests by filter mode.",
		},
		[]string{"service", "mode"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lps",
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of results returned per search request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	searchShortfallTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lps",
			Subsystem: "search",
			Name:      "shortfall_total",
			Help:      "Total search requests that returned fewer results than requested.",
		},
		[]string{"service"},
	)
	searchDroppedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lps",
			Subsystem: "search",
			Name:      "dropped_total",
			Help:      "Total raw results dropped during compaction by reason.",
		},
		[]string{"service", "reason"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lps",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	exclusionRefreshTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lps",
			Subsystem: "exclusion",
			Name:      "refresh_total",
			Help:      "Total exclusion snapshot refresh attempts by status.",
		},
		[]string{"service", "status"},
	)
	exclusionSnapshotSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lps",
			Subsystem: "exclusion",
			Name:      "snapshot_size",
			Help:      "Number of excluded documents in the current snapshot.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	exclusionStaleServedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lps",
			Subsystem: "exclusion",
			Name:      "stale_served_total",
			Help:      "Total requests served from a stale exclusion snapshot.",
		},
		[]string{"service"},
	)
	feedbackRecordedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lps",
			Subsystem: "feedback",
			Name:      "recorded_total",
			Help:      "Total feedback events accepted by kind.",
		},
		[]string{"service", "kind"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchRequestsTotal,
		searchResults,
		searchShortfallTotal,
		searchDroppedTotal,
		searchDuration,
		exclusionRefreshTotal,
		exclusionSnapshotSize,
		exclusionStaleServedTotal,
		feedbackRecordedTotal,
	)

	return &HTTPServerMetrics{
		registry:                  registry,
		service:                   service,
		requestTotal:              requestTotal,
		requestDuration:           requestDuration,
		requestInFlight:           requestInFlight,
		searchRequestsTotal:       searchRequestsTotal,
		searchResults:             searchResults,
		searchShortfallTotal:      searchShortfallTotal,
		searchDroppedTotal:        searchDroppedTotal,
		searchDuration:            searchDuration,
		exclusionRefreshTotal:     exclusionRefreshTotal,
		exclusionSnapshotSize:     exclusionSnapshotSize,
		exclusionStaleServedTotal: exclusionStaleServedTotal,
		feedbackRecordedTotal:     feedbackRecordedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/feedback/"):
		return "/v1/feedback/{document_id}"
	default:
		return path
	}
}

// RecordSearchObservation records one completed search. Requests that ran
// without the exclusion filter are labelled degraded.
func (m *HTTPServerMetrics) RecordSearchObservation(degraded bool, requested, emitted, droppedExcluded, droppedDuplicate int, duration time.Duration) {
	mode := "filtered"
	if degraded {
		mode = "degraded"
	}
	m.searchRequestsTotal.WithLabelValues(m.service, mode).Inc()
	m.searchResults.WithLabelValues(m.service).Observe(float64(emitted))
	m.searchDuration.WithLabelValues(m.service).Observe(duration.Seconds())

	if emitted < requested {
		m.searchShortfallTotal.WithLabelValues(m.service).Inc()
	}
	if droppedExcluded > 0 {
		m.searchDroppedTotal.WithLabelValues(m.service, "excluded").Add(float64(droppedExcluded))
	}
	if droppedDuplicate > 0 {
		m.searchDroppedTotal.WithLabelValues(m.service, "duplicate").Add(float64(droppedDuplicate))
	}
}

func (m *HTTPServerMetrics) RecordFeedback(isHelpful bool) {
	kind := "dislike"
	if isHelpful {
		kind = "like"
	}
	m.feedbackRecordedTotal.WithLabelValues(m.service, kind).Inc()
}

// The three methods below satisfy the exclusion cache's observer contract.

func (m *HTTPServerMetrics) ExclusionRefreshSucceeded(size int) {
	m.exclusionRefreshTotal.WithLabelValues(m.service, "success").Inc()
	m.exclusionSnapshotSize.Set(float64(size))
}

func (m *HTTPServerMetrics) ExclusionRefreshFailed() {
	m.exclusionRefreshTotal.WithLabelValues(m.service, "failure").Inc()
}

func (m *HTTPServerMetrics) ExclusionServedStale() {
	m.exclusionStaleServedTotal.WithLabelValues(m.service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
