package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess   = "success"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
)

var (
	// TasksTotal counts finished tasks by kind and outcome.
	TasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpsession_tasks_total",
		Help: "Total number of finished session tasks.",
	}, []string{"kind", "outcome"})

	// TaskDuration observes the time from Resume to completion.
	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "httpsession_task_duration_seconds",
		Help:    "Duration of session tasks from resume to completion.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// ActiveTasks tracks resumed tasks that have not completed.
	ActiveTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "httpsession_active_tasks",
		Help: "Number of running session tasks.",
	})
)
