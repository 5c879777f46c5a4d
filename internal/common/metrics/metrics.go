// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_events_published_total",
			Help: "Total number of events published on the bus",
		},
		[]string{"event_type"},
	)

	HandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_handler_errors_total",
			Help: "Total number of event handler errors",
		},
		[]string{"event_type", "handler"},
	)

	EventDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "engine_event_dispatch_duration_seconds",
			Help: "Duration of event handler execution in seconds",
		},
		[]string{"event_type"},
	)

	RulesMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_rules_matched_total",
			Help: "Total number of automation rules matched per trigger",
		},
		[]string{"action_type"},
	)

	ActionsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_actions_executed_total",
			Help: "Total number of automation actions delivered",
		},
		[]string{"action_type"},
	)

	ActionsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_actions_suppressed_total",
			Help: "Total number of automation actions suppressed",
		},
		[]string{"reason"},
	)

	ActionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_actions_failed_total",
			Help: "Total number of automation actions that exhausted delivery retries",
		},
		[]string{"action_type"},
	)

	GatewayRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_gateway_retries_total",
			Help: "Total number of gateway send retries",
		},
		[]string{"channel"},
	)

	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_alerts_emitted_total",
			Help: "Total number of alerts produced by aggregator scans",
		},
		[]string{"alert_type"},
	)
)
