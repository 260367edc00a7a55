package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_broadcasts_total",
			Help: "Admin broadcasts by outcome",
		},
		[]string{"audience", "outcome"},
	)

	BroadcastRecipients = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_broadcast_recipients",
			Help:    "Resolved recipients per broadcast",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"audience"},
	)

	RecipientPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_recipient_publishes_total",
			Help: "Per-recipient event publishes by result",
		},
		[]string{"result"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_events_consumed_total",
			Help: "Bus events handled by the consumer, by outcome",
		},
		[]string{"type", "outcome"},
	)

	EventHandleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notification_event_handle_duration_seconds",
			Help: "Duration of consumer event handling in seconds",
		},
		[]string{"outcome"},
	)

	PushOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_push_outcomes_total",
			Help: "Push delivery attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	TokensInvalidated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_push_tokens_invalidated_total",
			Help: "Device tokens removed after a permanent provider error",
		},
		[]string{"provider"},
	)

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
)
