package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	// PredictionRequests counts dispatched prediction requests by outcome:
	// success, transport_error, response_invalid, stale.
	PredictionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_prediction_requests_total",
			Help: "Prediction requests sent to the scoring service",
		},
		[]string{"category", "mode", "outcome"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loan_prediction_duration_seconds",
			Help:    "Round trip time of prediction requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"category", "mode"},
	)

	FormValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_form_validation_failures_total",
			Help: "Submissions blocked by form validation",
		},
		[]string{"category"},
	)

	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_decisions_total",
			Help: "Interpreted decisions by affirmative flag",
		},
		[]string{"category", "mode", "approved"},
	)
)

// Mode returns the label value for a fairness flag.
func Mode(fair bool) string {
	if fair {
		return "fair"
	}
	return "standard"
}
