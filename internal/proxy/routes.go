// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package proxy

import "net/http"

// AuthMode selects how a proxied request authenticates upstream.
type AuthMode int

const (
	// ModeAPIKey injects the configured X-API-Key. A session token, if the
	// browser has one, is forwarded too so optional-auth endpoints see the
	// member.
	ModeAPIKey AuthMode = iota
	// ModeBearer requires a session token and forwards it as a bearer
	// Authorization header. Requests without one get 401 locally.
	ModeBearer
)

func (m AuthMode) String() string {
	if m == ModeBearer {
		return "bearer"
	}
	return "api_key"
}

// SessionAction is what the proxy does with the token cookie after the
// upstream call.
type SessionAction int

const (
	SessionNone SessionAction = iota
	// SessionLogin stores data.token from a successful response in the cookie.
	SessionLogin
	// SessionLogout clears the cookie.
	SessionLogout
)

// Route maps a local path onto an upstream API path. Both patterns use chi
// syntax; every {param} in Upstream must appear in Pattern.
type Route struct {
	Name     string
	Method   string
	Pattern  string
	Upstream string
	Mode     AuthMode
	Session  SessionAction
	// Upgrade routes are streamed through a reverse proxy so websocket
	// handshakes survive. They bypass the circuit breaker.
	Upgrade bool
}

// FrontendRoutes is the public site's API surface.
func FrontendRoutes() []Route {
	return []Route{
		{Name: "auth_register", Method: http.MethodPost, Pattern: "/api/auth/register", Upstream: "/api/v1/auth/register", Mode: ModeAPIKey, Session: SessionLogin},
		{Name: "auth_login", Method: http.MethodPost, Pattern: "/api/auth/login", Upstream: "/api/v1/auth/login", Mode: ModeAPIKey, Session: SessionLogin},
		{Name: "auth_logout", Method: http.MethodPost, Pattern: "/api/auth/logout", Upstream: "/api/v1/auth/logout", Mode: ModeAPIKey, Session: SessionLogout},
		{Name: "auth_me", Method: http.MethodGet, Pattern: "/api/auth/me", Upstream: "/api/v1/auth/me", Mode: ModeBearer},

		{Name: "members_me", Method: http.MethodGet, Pattern: "/api/members/me", Upstream: "/api/v1/members/me", Mode: ModeBearer},
		{Name: "members_me_update", Method: http.MethodPut, Pattern: "/api/members/me", Upstream: "/api/v1/members/me", Mode: ModeBearer},

		{Name: "content_pages", Method: http.MethodGet, Pattern: "/api/content/pages", Upstream: "/api/v1/content/pages", Mode: ModeAPIKey},
		{Name: "content_page", Method: http.MethodGet, Pattern: "/api/content/pages/{slug}", Upstream: "/api/v1/content/pages/{slug}", Mode: ModeAPIKey},

		{Name: "chat_conversations", Method: http.MethodGet, Pattern: "/api/chat/conversations", Upstream: "/api/v1/chat/conversations", Mode: ModeBearer},
		{Name: "chat_conversation", Method: http.MethodGet, Pattern: "/api/chat/conversations/{peer}", Upstream: "/api/v1/chat/conversations/{peer}", Mode: ModeBearer},
		{Name: "chat_read", Method: http.MethodPost, Pattern: "/api/chat/conversations/{peer}/read", Upstream: "/api/v1/chat/conversations/{peer}/read", Mode: ModeBearer},
		{Name: "chat_send", Method: http.MethodPost, Pattern: "/api/chat/messages", Upstream: "/api/v1/chat/messages", Mode: ModeBearer},
		{Name: "chat_blocks", Method: http.MethodGet, Pattern: "/api/chat/blocks", Upstream: "/api/v1/chat/blocks", Mode: ModeBearer},
		{Name: "chat_block", Method: http.MethodPost, Pattern: "/api/chat/blocks", Upstream: "/api/v1/chat/blocks", Mode: ModeBearer},
		{Name: "chat_unblock", Method: http.MethodDelete, Pattern: "/api/chat/blocks/{member}", Upstream: "/api/v1/chat/blocks/{member}", Mode: ModeBearer},
		{Name: "chat_ws", Method: http.MethodGet, Pattern: "/api/chat/ws", Upstream: "/api/v1/chat/ws", Mode: ModeBearer, Upgrade: true},

		{Name: "events_upcoming", Method: http.MethodGet, Pattern: "/api/events", Upstream: "/api/v1/events", Mode: ModeBearer},
		{Name: "events_get", Method: http.MethodGet, Pattern: "/api/events/{id}", Upstream: "/api/v1/events/{id}", Mode: ModeBearer},

		{Name: "documents_list", Method: http.MethodGet, Pattern: "/api/documents", Upstream: "/api/v1/documents", Mode: ModeAPIKey},
		{Name: "documents_upload", Method: http.MethodPost, Pattern: "/api/documents", Upstream: "/api/v1/documents", Mode: ModeBearer},
		{Name: "documents_download", Method: http.MethodGet, Pattern: "/api/documents/{id}/download", Upstream: "/api/v1/documents/{id}/download", Mode: ModeAPIKey},
		{Name: "documents_delete", Method: http.MethodDelete, Pattern: "/api/documents/{id}", Upstream: "/api/v1/documents/{id}", Mode: ModeBearer},

		{Name: "search", Method: http.MethodGet, Pattern: "/api/search", Upstream: "/api/v1/search", Mode: ModeAPIKey},
		{Name: "track", Method: http.MethodPost, Pattern: "/api/track", Upstream: "/api/v1/track", Mode: ModeAPIKey},
		{Name: "membership_features", Method: http.MethodGet, Pattern: "/api/membership/features", Upstream: "/api/v1/membership/features", Mode: ModeAPIKey},
	}
}

// AdminRoutes is the admin portal's API surface, mounted under /admin.
func AdminRoutes() []Route {
	return []Route{
		{Name: "admin_login", Method: http.MethodPost, Pattern: "/api/login", Upstream: "/api/v1/auth/login", Mode: ModeAPIKey, Session: SessionLogin},
		{Name: "admin_logout", Method: http.MethodPost, Pattern: "/api/logout", Upstream: "/api/v1/auth/logout", Mode: ModeAPIKey, Session: SessionLogout},
		{Name: "admin_members", Method: http.MethodGet, Pattern: "/api/members", Upstream: "/api/v1/members", Mode: ModeBearer},
		{Name: "admin_member_roles", Method: http.MethodPut, Pattern: "/api/members/{id}/roles", Upstream: "/api/v1/members/{id}/roles", Mode: ModeBearer},
		{Name: "admin_member_tier", Method: http.MethodPut, Pattern: "/api/members/{id}/tier", Upstream: "/api/v1/members/{id}/tier", Mode: ModeBearer},
		{Name: "admin_analytics", Method: http.MethodGet, Pattern: "/api/analytics/summary", Upstream: "/api/v1/analytics/summary", Mode: ModeBearer},
	}
}
