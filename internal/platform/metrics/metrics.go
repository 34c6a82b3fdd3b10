package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the claim-validation core.
type Metrics struct {
	ClaimsCreated    prometheus.Counter
	ClaimsRetired    prometheus.Counter
	RequestsOpened   *prometheus.CounterVec
	OpenConflicts    prometheus.Counter
	ResponsesTotal   *prometheus.CounterVec
	RequestsClosed   prometheus.Counter
	RemindersQueued  prometheus.Counter
	HTTPLatency      *prometheus.HistogramVec
	AuditPublishFail prometheus.Counter
}

// New creates and registers all instruments on the default registry.
func New() *Metrics {
	return &Metrics{
		ClaimsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stilltrue_claims_created_total",
			Help: "Claims created.",
		}),
		ClaimsRetired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stilltrue_claims_retired_total",
			Help: "Claims retired.",
		}),
		RequestsOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stilltrue_validation_requests_opened_total",
			Help: "Validation requests opened, by kind.",
		}, []string{"kind"}),
		OpenConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stilltrue_validation_request_open_conflicts_total",
			Help: "Open attempts rejected because a request was already open.",
		}),
		ResponsesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stilltrue_validation_responses_total",
			Help: "Validation responses recorded, by answer.",
		}, []string{"answer"}),
		RequestsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stilltrue_validation_requests_closed_total",
			Help: "Validation requests closed.",
		}),
		RemindersQueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stilltrue_reminders_queued_total",
			Help: "Reminder deliveries handed to the dispatcher.",
		}),
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stilltrue_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		AuditPublishFail: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stilltrue_audit_publish_failures_total",
			Help: "Audit events that could not be published.",
		}),
	}
}
