// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Document Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memberhub_store_operation_duration_seconds",
			Help:    "Duration of document store operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"operation", "collection"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberhub_store_operation_errors_total",
			Help: "Total number of document store errors",
		},
		[]string{"operation", "collection"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberhub_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memberhub_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memberhub_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Proxy Metrics
	ProxyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberhub_proxy_requests_total",
			Help: "Total number of proxied frontend requests",
		},
		[]string{"route", "status_code"},
	)

	ProxyRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memberhub_proxy_request_duration_seconds",
			Help:    "Upstream round trip duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		},
		[]string{"route"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "memberhub_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberhub_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberhub_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Chat Metrics
	ChatMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memberhub_chat_messages_sent_total",
			Help: "Total number of chat messages stored",
		},
	)

	ChatMessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberhub_chat_messages_rejected_total",
			Help: "Total number of chat messages rejected",
		},
		[]string{"reason"}, // blocked, rate_limited, invalid
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memberhub_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	// Event Publishing Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberhub_events_published_total",
			Help: "Total number of events published",
		},
		[]string{"trigger"}, // manual, schedule
	)

	// Upload Metrics
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberhub_uploads_total",
			Help: "Total number of document uploads",
		},
		[]string{"result"}, // accepted, too_large, type_rejected, error
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memberhub_upload_bytes_total",
			Help: "Total bytes of accepted uploads",
		},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberhub_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberhub_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Analytics Tracker Metrics
	AnalyticsEventsTracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberhub_analytics_events_total",
			Help: "Total number of tracked analytics events by name",
		},
		[]string{"name"},
	)

	AnalyticsEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberhub_analytics_events_dropped_total",
			Help: "Total number of analytics events that could not be published or persisted",
		},
		[]string{"stage"}, // publish, decode, persist
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "memberhub_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version", "role"},
	)
)

// RecordStoreOperation records a document store operation.
func RecordStoreOperation(operation, collection string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(operation, collection).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(operation, collection).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordProxyRequest records one proxied request.
func RecordProxyRequest(route, statusCode string, duration time.Duration) {
	ProxyRequestsTotal.WithLabelValues(route, statusCode).Inc()
	ProxyRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordBreakerTransition updates the state gauge and transition counter.
// States follow gobreaker: 0=closed, 1=half-open, 2=open.
func RecordBreakerTransition(name, from, to string, toState float64) {
	CircuitBreakerState.WithLabelValues(name).Set(toState)
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordUpload records an upload attempt; size counts only when accepted.
func RecordUpload(result string, size int64) {
	UploadsTotal.WithLabelValues(result).Inc()
	if result == "accepted" {
		UploadBytes.Add(float64(size))
	}
}
