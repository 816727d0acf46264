package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Evaluation pipeline metrics
	EvaluationPasses  *prometheus.CounterVec
	EvaluationAborted prometheus.Counter
	EvaluationLatency prometheus.Histogram
	DraftsProduced    *prometheus.CounterVec
	CrisisAlerts      *prometheus.CounterVec

	// Scheduling metrics
	NotificationsScheduled  *prometheus.CounterVec
	NotificationsSuppressed *prometheus.CounterVec
	CapDropped              prometheus.Counter

	// Delivery metrics
	DeliveriesAccepted *prometheus.CounterVec
	DeliveriesRejected *prometheus.CounterVec
	RedeliveryAttempts prometheus.Counter
	OpenedEvents       prometheus.Counter

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		EvaluationPasses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "evaluation_passes_total",
			Help:      "Total number of evaluation passes by triggering event",
		}, []string{"event"}),
		EvaluationAborted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "evaluation_passes_aborted_total",
			Help:      "Total number of evaluation passes aborted on storage errors",
		}),
		EvaluationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent running an evaluation pass",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		DraftsProduced: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notification_drafts_total",
			Help:      "Candidate notifications produced by the trigger engine",
		}, []string{"type"}),
		CrisisAlerts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "crisis_alerts_total",
			Help:      "Crisis alerts emitted by severity",
		}, []string{"severity"}),
		NotificationsScheduled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_scheduled_total",
			Help:      "Finalized notifications by type",
		}, []string{"type"}),
		NotificationsSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_suppressed_total",
			Help:      "Candidates suppressed by de-duplication spacing",
		}, []string{"type"}),
		CapDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_cap_dropped_total",
			Help:      "Candidates dropped by the per-pass cap",
		}),
		DeliveriesAccepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deliveries_accepted_total",
			Help:      "Sink-accepted deliveries by type",
		}, []string{"type"}),
		DeliveriesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deliveries_rejected_total",
			Help:      "Sink-rejected deliveries by type",
		}, []string{"type"}),
		RedeliveryAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "redelivery_attempts_total",
			Help:      "Retry attempts for unsent notifications",
		}),
		OpenedEvents: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "opened_events_total",
			Help:      "Opened callbacks received from the platform",
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
	}
}
