package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	quizSubmissionsTotal   *prometheus.CounterVec
	gradeComputationsTotal *prometheus.CounterVec
	activityEventsTotal    *prometheus.CounterVec
	notificationsTotal     *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aula_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aula_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		quizSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aula_quiz_submissions_total",
			Help: "Total number of scored quiz submissions.",
		}, []string{"unit"})

		gradeComputationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aula_grade_computations_total",
			Help: "Total number of unit grade aggregations, by degradation.",
		}, []string{"degraded"})

		activityEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aula_activity_events_total",
			Help: "Total number of recorded activity events, by kind.",
		}, []string{"kind"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aula_notifications_published_total",
			Help: "Total number of published notifications, by type.",
		}, []string{"type"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			quizSubmissionsTotal,
			gradeComputationsTotal,
			activityEventsTotal,
			notificationsTotal,
		)
	})
}

// APIRequests exposes the counter for served requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the request latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// QuizSubmissions exposes the counter for scored submissions.
func QuizSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return quizSubmissionsTotal
}

// GradeComputations exposes the counter for grade aggregations.
func GradeComputations() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeComputationsTotal
}

// ActivityEvents exposes the counter for recorded activity events.
func ActivityEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return activityEventsTotal
}

// NotificationsPublished exposes the counter for published notifications.
func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}
