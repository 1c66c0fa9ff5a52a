// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/memberhub/internal/analytics"
	"github.com/tomtom215/memberhub/internal/chat"
	"github.com/tomtom215/memberhub/internal/cms"
	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/documents"
	"github.com/tomtom215/memberhub/internal/events"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/members"
	"github.com/tomtom215/memberhub/internal/membership"
	"github.com/tomtom215/memberhub/internal/middleware"
	"github.com/tomtom215/memberhub/internal/search"
	"github.com/tomtom215/memberhub/internal/store"
	"github.com/tomtom215/memberhub/internal/websocket"
)

// Version is reported by the health endpoints. Set at build time.
var Version = "dev"

// Dependencies are the services behind the API handlers.
type Dependencies struct {
	Config    *config.Config
	Store     *store.Store
	Members   *members.Service
	Pages     *cms.Service
	Chat      *chat.Service
	Events    *events.Service
	Documents *documents.Service
	Search    *search.Service
	Tiers     *membership.Provider
	Tracker   *analytics.Tracker
	Analytics *analytics.Collection
	Hub       *websocket.Hub
	PerfMon   *middleware.PerformanceMonitor
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files by resource:
//   - handlers_auth.go: registration, login, current member
//   - handlers_members.go: profiles and member administration
//   - handlers_content.go: CMS pages
//   - handlers_chat.go: conversations, blocking, websocket
//   - handlers_events.go: event publishing
//   - handlers_documents.go: uploads and downloads
//   - handlers_search.go: search and membership flags
//   - handlers_analytics.go: tracking and summaries
//   - handlers_health.go: liveness and readiness
type Handler struct {
	cfg       *config.Config
	store     *store.Store
	members   *members.Service
	pages     *cms.Service
	chat      *chat.Service
	events    *events.Service
	documents *documents.Service
	search    *search.Service
	tiers     *membership.Provider
	tracker   *analytics.Tracker
	analytics *analytics.Collection
	hub       *websocket.Hub
	perfMon   *middleware.PerformanceMonitor

	defaultPageSize int
	maxPageSize     int
	startTime       time.Time
	now             func() time.Time
}

// NewHandler creates the API handler.
func NewHandler(deps Dependencies) *Handler {
	h := &Handler{
		cfg:             deps.Config,
		store:           deps.Store,
		members:         deps.Members,
		pages:           deps.Pages,
		chat:            deps.Chat,
		events:          deps.Events,
		documents:       deps.Documents,
		search:          deps.Search,
		tiers:           deps.Tiers,
		tracker:         deps.Tracker,
		analytics:       deps.Analytics,
		hub:             deps.Hub,
		perfMon:         deps.PerfMon,
		defaultPageSize: deps.Config.API.DefaultPageSize,
		maxPageSize:     deps.Config.API.MaxPageSize,
		startTime:       time.Now(),
		now:             time.Now,
	}
	if h.defaultPageSize <= 0 {
		h.defaultPageSize = 20
	}
	if h.maxPageSize < h.defaultPageSize {
		h.maxPageSize = 100
	}
	return h
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() gorillaws.Upgrader {
	return gorillaws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts same-host origins, the configured public URL
// and the CORS origins. Browsers always send Origin, so a missing header is
// rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}

	allowed := append([]string{strings.TrimRight(h.cfg.Server.PublicURL, "/")}, h.cfg.Security.CORSOrigins...)
	for _, a := range allowed {
		if a == "*" || (a != "" && a == origin) {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
