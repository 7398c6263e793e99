// Package metrics provides Prometheus instrumentation for the isobox service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts the total number of HTTP requests processed
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "isobox",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestDuration observes the HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "isobox",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// ExecutionsTotal counts code executions by language and outcome
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "isobox",
			Subsystem: "execution",
			Name:      "operations_total",
			Help:      "Total number of code executions",
		},
		[]string{"language", "status"},
	)

	// ExecutionDuration observes the wall time of code executions
	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "isobox",
			Subsystem: "execution",
			Name:      "duration_seconds",
			Help:      "Wall time of code executions",
			Buckets:   []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"language"},
	)

	// TestCaseResultsTotal counts test case verdicts
	TestCaseResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "isobox",
			Subsystem: "execution",
			Name:      "test_case_results_total",
			Help:      "Total number of test case results",
		},
		[]string{"result"},
	)

	// DedupLookupsTotal counts dedup cache lookups by outcome
	DedupLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "isobox",
			Subsystem: "dedup",
			Name:      "lookups_total",
			Help:      "Total number of dedup cache lookups",
		},
		[]string{"result"},
	)
)

// responseWriter is a wrapper for http.ResponseWriter that captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Status returns the HTTP status code
func (rw *responseWriter) Status() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

// Middleware captures HTTP request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		endpoint := r.URL.Path
		status := strconv.Itoa(rw.Status())

		HTTPRequestsTotal.WithLabelValues(r.Method, endpoint, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, endpoint).Observe(duration)
	})
}

// SetupMetricsEndpoint registers the /metrics endpoint
func SetupMetricsEndpoint(router *mux.Router) {
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// RecordExecution records a code execution outcome
func RecordExecution(language, status string, duration float64) {
	ExecutionsTotal.WithLabelValues(language, status).Inc()
	ExecutionDuration.WithLabelValues(language).Observe(duration)
}

// RecordTestCaseResult records one test case verdict
func RecordTestCaseResult(passed bool) {
	result := "failed"
	if passed {
		result = "passed"
	}
	TestCaseResultsTotal.WithLabelValues(result).Inc()
}

// RecordDedupLookup records a dedup cache lookup outcome
func RecordDedupLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DedupLookupsTotal.WithLabelValues(result).Inc()
}
