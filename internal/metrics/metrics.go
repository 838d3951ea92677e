package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobstatus_jobs_submitted_total",
			Help: "Total number of jobs submitted to the queue engine",
		},
		[]string{"function"},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobstatus_jobs_completed_total",
			Help: "Total number of jobs finished by the execution pool",
		},
		[]string{"function", "success"}, // success: "true" or "false"
	)

	JobRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobstatus_job_retries_total",
			Help: "Total number of re-submissions made by the retry runner",
		},
		[]string{"function"},
	)

	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobstatus_reconciliations_total",
			Help: "Total number of job-ended events handled by the reconciler",
		},
		[]string{"outcome"}, // stored, skipped, failed
	)

	ResolverLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobstatus_resolver_lookups_total",
			Help: "Status lookups by the layer that answered",
		},
		[]string{"layer"}, // transient, durable, none
	)

	RunningJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobstatus_running_jobs",
			Help: "Current number of jobs being executed",
		},
	)

	JobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobstatus_job_duration_seconds",
			Help:    "Job execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		},
		[]string{"function"},
	)
)
