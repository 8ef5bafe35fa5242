// Package metrics provides Prometheus metrics for OnCall.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "oncall"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Ingestion metrics
var (
	// IngestReceivedTotal counts accepted inbound payloads by integration.
	IngestReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "received_total",
			Help:      "Total inbound payloads accepted",
		},
		[]string{"integration"},
	)

	// IngestRejectedTotal counts rejected inbound payloads by reason.
	IngestRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rejected_total",
			Help:      "Total inbound payloads rejected",
		},
		[]string{"reason"}, // unknown_channel, wrong_integration, rate_limited, bad_payload
	)

	// IngestRateLimitedTotal counts requests deferred by the channel rate limiter.
	IngestRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rate_limited_total",
			Help:      "Total requests that hit the per-channel rate limit",
		},
	)

	// AlertsCreatedTotal counts canonical alerts persisted by the worker.
	AlertsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "alerts_created_total",
			Help:      "Total canonical alerts persisted",
		},
		[]string{"channel"},
	)
)

// Heartbeat metrics
var (
	// HeartbeatSignals counts received liveness pings.
	HeartbeatSignals = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "heartbeat",
			Name:      "signals_total",
			Help:      "Total heartbeat signals received",
		},
	)

	// HeartbeatExpirations counts ALIVE to DEAD transitions.
	HeartbeatExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "heartbeat",
			Name:      "expirations_total",
			Help:      "Total heartbeat records that expired",
		},
	)

	// HeartbeatStaleChecks counts expiration checks superseded by a newer signal.
	HeartbeatStaleChecks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "heartbeat",
			Name:      "stale_checks_total",
			Help:      "Total expiration checks that no-oped as stale",
		},
	)
)

// Task queue metrics
var (
	// TasksPublishedTotal counts tasks published to the queue by kind.
	TasksPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "tasks_published_total",
			Help:      "Total tasks published to the queue",
		},
		[]string{"kind"},
	)

	// TasksProcessedTotal counts consumed tasks by kind and result.
	TasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "tasks_processed_total",
			Help:      "Total tasks processed by the worker",
		},
		[]string{"kind", "result"}, // ok, error
	)

	// TaskProcessDuration tracks worker task latency.
	TaskProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "task_duration_seconds",
			Help:      "Worker task processing latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)

	// SchedulerDeliveryLag tracks how far past its due time a deferred task
	// was published.
	SchedulerDeliveryLag = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "scheduler_delivery_lag_seconds",
			Help:      "Delay between a deferred task's due time and its publish",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

// Info metric
var (
	// BuildInfo exposes build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}
