/*-------------------------------------------------------------------------
 *
 * prometheus.go
 *    Prometheus metrics for NeuronApprovals
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/metrics/prometheus.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuronapprovals_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neuronapprovals_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	approvalsRequestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuronapprovals_approvals_requested_total",
			Help: "Approval requests by subject type; created is false when an existing pending approval was returned",
		},
		[]string{"approvable_type", "created"},
	)

	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuronapprovals_decisions_total",
			Help: "Recorded approval decisions",
		},
		[]string{"decision"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuronapprovals_notifications_total",
			Help: "Notification deliveries by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuronapprovals_events_total",
			Help: "Published workflow events",
		},
		[]string{"type", "status"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "neuronapprovals_notification_queue_depth",
			Help: "Notification jobs waiting in the in-process queue",
		},
		[]string{"queue"},
	)

	activeConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "neuronapprovals_active_connections",
			Help: "Number of active connections",
		},
		[]string{"type"},
	)
)

/* RecordHTTPRequest records an HTTP request */
func RecordHTTPRequest(method, endpoint string, statusCode int, durationSeconds float64) {
	status := "unknown"
	switch {
	case statusCode >= 500:
		status = "5xx"
	case statusCode >= 400:
		status = "4xx"
	case statusCode >= 300:
		status = "3xx"
	case statusCode >= 200:
		status = "2xx"
	}

	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

/* RecordApprovalRequested counts a request for approval */
func RecordApprovalRequested(approvableType string, created bool) {
	approvalsRequestedTotal.WithLabelValues(approvableType, strconv.FormatBool(created)).Inc()
}

/* RecordDecision counts an approve or reject decision */
func RecordDecision(decision string) {
	decisionsTotal.WithLabelValues(decision).Inc()
}

/* RecordNotification counts one delivery attempt */
func RecordNotification(channel, status string) {
	notificationsTotal.WithLabelValues(channel, status).Inc()
}

/* RecordEvent counts a broker publish */
func RecordEvent(eventType, status string) {
	eventsTotal.WithLabelValues(eventType, status).Inc()
}

/* SetQueueDepth sets the notification queue depth */
func SetQueueDepth(queue string, depth int) {
	queueDepth.WithLabelValues(queue).Set(float64(depth))
}

/* SetActiveConnections sets the number of active connections by type */
func SetActiveConnections(connType string, count float64) {
	activeConnections.WithLabelValues(connType).Set(count)
}

/* Handler returns the Prometheus metrics HTTP handler */
func Handler() http.Handler {
	return promhttp.Handler()
}
