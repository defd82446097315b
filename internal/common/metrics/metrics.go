// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"method", "route"},
	)

	ScoreRecomputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "score_recomputes_total",
			Help: "Total number of evidence score recomputations",
		},
		[]string{"result"},
	)

	LetterTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letter_transitions_total",
			Help: "Total number of interest letter state transitions",
		},
		[]string{"event", "result"},
	)

	SignatureWebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signature_webhook_events_total",
			Help: "Total number of signature provider webhook events received",
		},
		[]string{"event_type"},
	)

	ClassifierCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_calls_total",
			Help: "Total number of document classification calls by provider outcome",
		},
		[]string{"provider", "result"},
	)

	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications dispatched",
		},
		[]string{"channel", "status"},
	)
)
