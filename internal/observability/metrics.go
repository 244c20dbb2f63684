package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	gradingTasksActive    prometheus.Gauge
	gradingTasksCompleted *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the grading
// gateway.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grader_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		gradingTasksActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grader_tasks_active",
			Help: "Number of grading tasks currently holding a scoring slot.",
		})

		gradingTasksCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_tasks_completed_total",
			Help: "Terminal grading task outcomes by status.",
		}, []string{"status"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, gradingTasksActive, gradingTasksCompleted)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// TasksActive exposes the gauge for tasks inside the scoring phase.
func TasksActive() prometheus.Gauge {
	RegisterMetrics()
	return gradingTasksActive
}

// TasksCompleted exposes the counter for terminal task outcomes.
func TasksCompleted() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingTasksCompleted
}
