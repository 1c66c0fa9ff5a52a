// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

// Package web renders the public member site and the admin portal.
//
// Pages are server-rendered with html/template. All data is read through the
// backend API with the visitor's session token, the same path the browser's
// own API calls take through the proxy routes.
package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/membership"
	"github.com/tomtom215/memberhub/internal/models"
	"github.com/tomtom215/memberhub/internal/proxy"
)

// Backend reads from the API. proxy.Proxy implements it.
type Backend interface {
	GetJSON(ctx context.Context, path string, query url.Values, token string, out interface{}) error
}

// PageData is passed to every template.
type PageData struct {
	Title     string
	RequestID string
	Member    *models.MemberView
	Features  map[string]bool
	Flags     membership.Flags
	Query     string
	Notice    string
	Message   string

	Page   *models.Page
	Tiers  bool
	Events []*models.Event
	Event  *models.Event

	Results []models.SearchResult

	Conversations    []models.ConversationSummary
	Messages         []*models.ChatMessage
	Peer             string
	MaxMessageLength int

	LoginEndpoint string
	Next          string
	AllowRegister bool

	Stats   DashboardStats
	Members MemberPage
	Pager   Pager
}

// Site serves the public frontend pages.
type Site struct {
	backend          Backend
	renderer         *Renderer
	maxMessageLength int
}

// NewSite creates the public site handlers.
func NewSite(backend Backend, renderer *Renderer, chat config.ChatConfig) *Site {
	return &Site{backend: backend, renderer: renderer, maxMessageLength: chat.MaxMessageLength}
}

// Routes registers the public pages on r.
func (s *Site) Routes(r chi.Router) {
	r.Get("/", s.cmsPage("home", false))
	r.Get("/about", s.cmsPage("about", false))
	r.Get("/membership", s.cmsPage("membership", true))
	r.Get("/pages/{slug}", s.handlePage)
	r.Get("/events", s.handleEvents)
	r.Get("/events/{id}", s.handleEvent)
	r.Get("/search", s.handleSearch)
	r.Get("/chat", s.handleChat)
	r.Get("/login", s.handleLogin)
}

// base loads the visitor's member record and feature flags. Failures
// degrade to an anonymous page.
func (s *Site) base(r *http.Request, title string) (*PageData, string) {
	data := &PageData{Title: title, RequestID: logging.RequestIDFromContext(r.Context())}
	token, _ := auth.TokenFromRequest(r)
	if token != "" {
		var me models.MemberView
		if err := s.backend.GetJSON(r.Context(), "/api/v1/auth/me", nil, token, &me); err == nil {
			data.Member = &me
		} else {
			token = ""
		}
	}
	if err := s.backend.GetJSON(r.Context(), "/api/v1/membership/features", nil, token, &data.Flags); err == nil {
		data.Features = data.Flags.Features
	}
	return data, token
}

func (s *Site) cmsPage(slug string, tiers bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderCMSPage(w, r, slug, tiers)
	}
}

func (s *Site) handlePage(w http.ResponseWriter, r *http.Request) {
	s.renderCMSPage(w, r, chi.URLParam(r, "slug"), false)
}

func (s *Site) renderCMSPage(w http.ResponseWriter, r *http.Request, slug string, tiers bool) {
	data, token := s.base(r, "")
	var page models.Page
	if err := s.backend.GetJSON(r.Context(), "/api/v1/content/pages/"+url.PathEscape(slug), nil, token, &page); err != nil {
		s.renderError(w, r, data, err)
		return
	}
	data.Title = page.Title
	data.Page = &page
	data.Tiers = tiers

	if slug == "home" && data.Features[config.FeatureEvents] {
		var events []*models.Event
		if err := s.backend.GetJSON(r.Context(), "/api/v1/events", url.Values{"limit": {"5"}}, token, &events); err == nil {
			data.Events = events
		}
	}
	s.renderer.renderPublic(w, http.StatusOK, "page", data)
}

func (s *Site) handleEvents(w http.ResponseWriter, r *http.Request) {
	data, token := s.base(r, "Events")
	if !s.requireFeature(w, r, data, config.FeatureEvents, "Events are not included in your membership tier.") {
		return
	}
	if err := s.backend.GetJSON(r.Context(), "/api/v1/events", url.Values{"limit": {"50"}}, token, &data.Events); err != nil {
		s.renderError(w, r, data, err)
		return
	}
	s.renderer.renderPublic(w, http.StatusOK, "events", data)
}

func (s *Site) handleEvent(w http.ResponseWriter, r *http.Request) {
	data, token := s.base(r, "Event")
	if !s.requireFeature(w, r, data, config.FeatureEvents, "Events are not included in your membership tier.") {
		return
	}
	var event models.Event
	if err := s.backend.GetJSON(r.Context(), "/api/v1/events/"+url.PathEscape(chi.URLParam(r, "id")), nil, token, &event); err != nil {
		s.renderError(w, r, data, err)
		return
	}
	data.Title = event.Title
	data.Event = &event
	s.renderer.renderPublic(w, http.StatusOK, "events", data)
}

func (s *Site) handleSearch(w http.ResponseWriter, r *http.Request) {
	data, token := s.base(r, "Search")
	data.Query = strings.TrimSpace(r.URL.Query().Get("q"))
	if data.Query != "" {
		q := url.Values{"q": {data.Query}, "limit": {"20"}}
		if err := s.backend.GetJSON(r.Context(), "/api/v1/search", q, token, &data.Results); err != nil && proxy.StatusOf(err) != http.StatusBadRequest {
			s.renderError(w, r, data, err)
			return
		}
	}
	s.renderer.renderPublic(w, http.StatusOK, "search", data)
}

func (s *Site) handleChat(w http.ResponseWriter, r *http.Request) {
	data, token := s.base(r, "Chat")
	if !s.requireFeature(w, r, data, config.FeatureChat, "Chat is not included in your membership tier.") {
		return
	}
	data.MaxMessageLength = s.maxMessageLength

	if err := s.backend.GetJSON(r.Context(), "/api/v1/chat/conversations", nil, token, &data.Conversations); err != nil {
		s.renderError(w, r, data, err)
		return
	}
	if peer := strings.TrimSpace(r.URL.Query().Get("peer")); peer != "" {
		data.Peer = peer
		if err := s.backend.GetJSON(r.Context(), "/api/v1/chat/conversations/"+url.PathEscape(peer), nil, token, &data.Messages); err != nil {
			s.renderError(w, r, data, err)
			return
		}
	}
	s.renderer.renderPublic(w, http.StatusOK, "chat", data)
}

// requireFeature sends anonymous visitors to the login page and renders 403
// for members whose tier lacks feature.
func (s *Site) requireFeature(w http.ResponseWriter, r *http.Request, data *PageData, feature, message string) bool {
	if data.Member == nil {
		http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
		return false
	}
	if !data.Features[feature] {
		data.Message = message
		s.renderer.renderPublic(w, http.StatusForbidden, "error", data)
		return false
	}
	return true
}

func (s *Site) handleLogin(w http.ResponseWriter, r *http.Request) {
	data, _ := s.base(r, "Log in")
	data.LoginEndpoint = "/api/auth/login"
	data.AllowRegister = true
	data.Next = safeNext(r.URL.Query().Get("next"), "/")
	s.renderer.renderPublic(w, http.StatusOK, "login", data)
}

func (s *Site) renderError(w http.ResponseWriter, r *http.Request, data *PageData, err error) {
	status, title, message := describeError(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Page backend call failed")
	}
	data.Title = title
	data.Message = message
	s.renderer.renderPublic(w, status, "error", data)
}

func describeError(err error) (int, string, string) {
	if errors.Is(err, proxy.ErrUnavailable) {
		return http.StatusServiceUnavailable, "Temporarily unavailable", "The service is busy. Please try again in a moment."
	}
	switch proxy.StatusOf(err) {
	case http.StatusNotFound:
		return http.StatusNotFound, "Not found", "The page you asked for does not exist."
	case http.StatusUnauthorized:
		return http.StatusUnauthorized, "Log in required", "Please log in to view this page."
	case http.StatusForbidden:
		return http.StatusForbidden, "Members only", "Your membership does not include this content."
	default:
		return http.StatusBadGateway, "Something went wrong", "We could not load this page."
	}
}

// safeNext allows only local absolute paths as redirect targets.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
