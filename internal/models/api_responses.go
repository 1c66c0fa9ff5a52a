// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package models

import (
	"time"
)

// APIResponse is the envelope written by every JSON endpoint.
//
// Status is "success" or "error". On error, Error is populated and Data is nil.
//
// Example:
//
//	{
//	  "status": "success",
//	  "data": {"slug": "home", "title": "Welcome"},
//	  "metadata": {"timestamp": "2026-01-10T12:00:00Z", "query_time_ms": 3}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response timing information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters
//   - AUTHENTICATION_ERROR: Invalid/missing credentials
//   - AUTHORIZATION_ERROR: Insufficient permissions
//   - FEATURE_DISABLED: Membership tier does not include the feature
//   - NOT_FOUND / CONFLICT
//   - UPSTREAM_UNAVAILABLE / UPSTREAM_ERROR: proxy failures
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ListResponse wraps a page of results.
type ListResponse struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// HealthStatus is returned by the readiness endpoint.
type HealthStatus struct {
	Status   string            `json:"status"`
	Role     string            `json:"role"`
	Version  string            `json:"version"`
	Uptime   float64           `json:"uptime_seconds"`
	Checks   map[string]string `json:"checks,omitempty"`
	Database bool              `json:"database_connected"`
}
