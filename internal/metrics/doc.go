// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

/*
Package metrics provides Prometheus metrics for Memberhub.

All collectors are registered with the default registry through promauto
and exposed at /metrics in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

API:
  - memberhub_api_requests_total (method, endpoint, status_code)
  - memberhub_api_request_duration_seconds (method, endpoint)
  - memberhub_api_active_requests

Proxy and upstream:
  - memberhub_proxy_requests_total (route, status_code)
  - memberhub_proxy_request_duration_seconds (route)
  - memberhub_circuit_breaker_state (name)
  - memberhub_circuit_breaker_requests_total (name, result)
  - memberhub_circuit_breaker_state_transitions_total (name, from_state, to_state)

Domain:
  - memberhub_chat_messages_sent_total
  - memberhub_chat_messages_rejected_total (reason)
  - memberhub_websocket_connections
  - memberhub_events_published_total (trigger)
  - memberhub_uploads_total (result), memberhub_upload_bytes_total
  - memberhub_analytics_events_total (name)
  - memberhub_analytics_events_dropped_total (stage)
  - memberhub_cache_hits_total / memberhub_cache_misses_total (cache_type)

Store:
  - memberhub_store_operation_duration_seconds (operation, collection)
  - memberhub_store_operation_errors_total (operation, collection)

Authorization decision metrics live in package authz.

# Label Cardinality

Endpoint labels use the chi route pattern, never the raw path, so IDs in
URLs do not create new series.
*/
package metrics
