// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

/*
Package api provides the backend HTTP API served under /api/v1.

The API is the only component that talks to the store. The public frontend
and the admin portal reach it through the proxy package, either with the
shared X-API-Key (anonymous reads, login, registration, tracking) or with
the member's bearer token.

# Response Envelope

Every JSON response uses models.APIResponse:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
	{"status": "error", "error": {"code": "NOT_FOUND", "message": "..."}, ...}

Lists wrap their items in models.ListResponse with total, limit and offset.
Service errors are mapped to status codes by classifyError; anything not in
the mapping table becomes 500 INTERNAL_ERROR with a generic message.

# Middleware Order

For /api/v1 the stack is CORS, security headers, Prometheus metrics, the
performance monitor and the per-IP rate limit, followed per route group by
RequireAPIKey or Authenticate, membership feature gates and Casbin
authorization. Request IDs, real IP extraction and panic recovery are global
and installed by SetupChi or cmd/server.

# Endpoints

	GET    /api/v1/health/live, /health/ready
	POST   /api/v1/auth/register, /auth/login, /auth/logout
	GET    /api/v1/auth/me
	GET    /api/v1/members/me          PUT /api/v1/members/me
	GET    /api/v1/members             (admin)
	GET    /api/v1/content/pages       GET /api/v1/content/pages/{slug}
	*      /api/v1/content/admin/pages (editor)
	*      /api/v1/chat/...            (chat feature)
	GET    /api/v1/events              GET /api/v1/events/{id}
	*      /api/v1/events/...          (editor)
	*      /api/v1/documents/...
	GET    /api/v1/search
	GET    /api/v1/membership/features, /membership/tiers
	POST   /api/v1/track
	GET    /api/v1/analytics/summary, /analytics/performance (admin)
	GET    /metrics
*/
package api
