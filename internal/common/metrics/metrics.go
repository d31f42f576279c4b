// internal/common/metrics/metrics.go
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

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livesearch_provider_requests_total",
			Help: "Requests sent to the pricing provider by operation and HTTP status",
		},
		[]string{"operation", "status"},
	)

	SessionAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "livesearch_session_attempts",
			Help:    "Attempts needed to open a search session",
			Buckets: []float64{1, 2, 3, 5, 10, 20},
		},
	)

	PollAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "livesearch_poll_attempts",
			Help:    "Bounded polls issued before completion or exhaustion",
			Buckets: []float64{1, 2, 5, 10, 20, 30},
		},
	)

	PipelineResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livesearch_pipeline_results_total",
			Help: "Finished search pipelines by outcome",
		},
		[]string{"status"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "livesearch_pipeline_duration_seconds",
			Help:    "Wall time of one query's session, poll and normalize pipeline",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"status"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livesearch_cache_lookups_total",
			Help: "Result cache lookups by outcome (hit, miss, error)",
		},
		[]string{"outcome"},
	)
)
