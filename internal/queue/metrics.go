package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	// jobsProcessed counts finished executions by kind and final status.
	jobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Total number of queued jobs executed, by kind and outcome.",
		},
		[]string{"kind", "status"},
	)

	// jobDuration records handler execution time by kind.
	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Duration of queued job execution in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// jobsReaped counts processing jobs returned to pending by the reaper.
	jobsReaped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_reaped_total",
			Help: "Total number of stale processing jobs returned to pending.",
		},
	)

	// jobsByStatus is refreshed by the reaper on every tick.
	jobsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobs_in_queue",
			Help: "Number of jobs in the queue table, by status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(jobsProcessed, jobDuration, jobsReaped, jobsByStatus)
}
