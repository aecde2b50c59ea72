// Package metrics defines the Prometheus collectors for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub metrics
var (
	// HubConnectedClients tracks the number of currently connected WebSocket clients.
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Number of currently connected WebSocket clients",
		},
	)

	// HubBroadcastsTotal tracks broadcast operations by event type.
	HubBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Total broadcast operations processed by the hub, by event type",
		},
		[]string{"type"},
	)

	// HubEventsDelivered tracks events enqueued to client send buffers.
	HubEventsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_events_delivered_total",
			Help: "Total events enqueued to client send buffers",
		},
	)

	// HubSlowClientsEvicted tracks clients dropped because their send buffer was full.
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Total clients disconnected because their send buffer was full",
		},
	)

	// HubMalformedFrames tracks inbound frames that failed to decode.
	HubMalformedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_malformed_frames_total",
			Help: "Total inbound WebSocket frames discarded as malformed",
		},
	)

	// HubSubscriptionsRejected tracks subscriptions refused because the form
	// already had the maximum number of subscribers.
	HubSubscriptionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_subscriptions_rejected_total",
			Help: "Total subscriptions rejected due to the per-form subscriber cap",
		},
	)

	// HubPingFailures tracks keepalive pings that could not be written.
	HubPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_ping_failures_total",
			Help: "Total keepalive ping write failures",
		},
	)

	// HubCommandChannelDepth tracks the hub command channel backlog.
	HubCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_command_channel_depth",
			Help: "Current depth of the hub command channel",
		},
	)
)

// Analytics metrics
var (
	// AnalyticsComputeDuration tracks summary computation latency in seconds.
	AnalyticsComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_compute_duration_seconds",
			Help:    "Analytics summary computation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// AnalyticsComputationsTotal tracks summary computations by outcome.
	AnalyticsComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_computations_total",
			Help: "Total analytics summary computations by status",
		},
		[]string{"status"},
	)
)

// Redis metrics
var (
	// RedisOpsTotal tracks total Redis operations by operation type and status.
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds.
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks Redis connection errors.
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)
)

// HTTP metrics
var (
	// HTTPErrorsTotal tracks HTTP errors by type.
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total HTTP errors by error type",
		},
		[]string{"type"},
	)

	// ResponsesSubmittedTotal tracks accepted form response submissions.
	ResponsesSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "responses_submitted_total",
			Help: "Total form responses accepted and stored",
		},
	)
)
