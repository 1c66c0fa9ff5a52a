// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

/*
Package middleware provides HTTP middleware shared by the API, frontend and
admin routers.

Key Components:

  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request counters and latency histograms labelled by
    chi route pattern
  - PerformanceMonitor: sliding-window latency percentiles per endpoint,
    served to admins at /api/v1/analytics/performance
  - Compression: gzip for server-rendered pages

Every component has the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(perfMon.Middleware)

Route patterns rather than raw paths are used as metric labels so member and
document IDs do not create unbounded label sets.
*/
package middleware
