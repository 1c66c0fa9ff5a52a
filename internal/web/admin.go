// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/models"
	"github.com/tomtom215/memberhub/internal/proxy"
)

const adminPageSize = 25

// DashboardStats is shown on the admin dashboard.
type DashboardStats struct {
	Members   int
	Pages     int
	Events    int
	Analytics models.AnalyticsSummary
}

// MemberPage is one page of the member list.
type MemberPage struct {
	Items  []models.MemberView `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// Pager holds list navigation offsets.
type Pager struct {
	HasPrev bool
	Prev    int
	HasNext bool
	Next    int
}

func newPager(offset, limit, total int) Pager {
	p := Pager{}
	if offset > 0 {
		p.HasPrev = true
		p.Prev = offset - limit
		if p.Prev < 0 {
			p.Prev = 0
		}
	}
	if offset+limit < total {
		p.HasNext = true
		p.Next = offset + limit
	}
	return p
}

type listTotal struct {
	Total int `json:"total"`
}

// Admin serves the admin portal pages.
type Admin struct {
	backend  Backend
	renderer *Renderer
	now      func() time.Time
}

// NewAdmin creates the admin portal handlers.
func NewAdmin(backend Backend, renderer *Renderer) *Admin {
	return &Admin{backend: backend, renderer: renderer, now: time.Now}
}

// Routes registers the admin pages on r, which is mounted at /admin.
func (a *Admin) Routes(r chi.Router) {
	r.Get("/login", a.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(a.requireAdminToken)
		r.Get("/", a.handleDashboard)
		r.Get("/members", a.handleMembers)
	})
}

// requireAdminToken redirects to the login page unless the session token's
// claims carry the admin role. The claims are decoded without verifying the
// signature; the backend verifies the token on every data call.
func (a *Admin) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.TokenFromRequest(r)
		if err != nil {
			a.toLogin(w, r)
			return
		}
		claims, err := auth.DecodeClaimsUnverified(token)
		if err != nil || claims.IsExpired(a.now()) || !claims.IsAdmin() {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Admin portal access denied")
			a.toLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Admin) toLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
}

func (a *Admin) base(r *http.Request, title string) (*PageData, string, error) {
	token, _ := auth.TokenFromRequest(r)
	data := &PageData{Title: title, RequestID: logging.RequestIDFromContext(r.Context())}
	var me models.MemberView
	if err := a.backend.GetJSON(r.Context(), "/api/v1/auth/me", nil, token, &me); err != nil {
		return data, token, err
	}
	data.Member = &me
	return data, token, nil
}

func (a *Admin) handleLogin(w http.ResponseWriter, r *http.Request) {
	data := &PageData{
		Title:         "Admin login",
		LoginEndpoint: "/admin/api/login",
		Next:          safeNext(r.URL.Query().Get("next"), "/admin"),
	}
	if !strings.HasPrefix(data.Next, "/admin") {
		data.Next = "/admin"
	}
	a.renderer.renderAdmin(w, http.StatusOK, "login", data)
}

func (a *Admin) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data, token, err := a.base(r, "Dashboard")
	if err != nil {
		a.fail(w, r, data, err)
		return
	}

	ctx := r.Context()
	one := url.Values{"limit": {"1"}}
	counts := []struct {
		path string
		dst  *int
	}{
		{"/api/v1/members", &data.Stats.Members},
		{"/api/v1/content/admin/pages", &data.Stats.Pages},
		{"/api/v1/events/all", &data.Stats.Events},
	}
	for _, c := range counts {
		var total listTotal
		if err := a.backend.GetJSON(ctx, c.path, one, token, &total); err != nil {
			a.fail(w, r, data, err)
			return
		}
		*c.dst = total.Total
	}
	if err := a.backend.GetJSON(ctx, "/api/v1/analytics/summary", nil, token, &data.Stats.Analytics); err != nil {
		// Analytics may be disabled; the dashboard still renders.
		logging.Ctx(ctx).Debug().Err(err).Msg("Analytics summary unavailable")
	}

	a.renderer.renderAdmin(w, http.StatusOK, "admin_dashboard", data)
}

func (a *Admin) handleMembers(w http.ResponseWriter, r *http.Request) {
	data, token, err := a.base(r, "Members")
	if err != nil {
		a.fail(w, r, data, err)
		return
	}

	data.Query = strings.TrimSpace(r.URL.Query().Get("q"))
	offset := atoiDefault(r.URL.Query().Get("offset"), 0)
	q := url.Values{
		"limit":  {strconv.Itoa(adminPageSize)},
		"offset": {strconv.Itoa(offset)},
	}
	if data.Query != "" {
		q.Set("q", data.Query)
	}
	if err := a.backend.GetJSON(r.Context(), "/api/v1/members", q, token, &data.Members); err != nil {
		a.fail(w, r, data, err)
		return
	}
	data.Pager = newPager(data.Members.Offset, adminPageSize, data.Members.Total)

	a.renderer.renderAdmin(w, http.StatusOK, "admin_members", data)
}

// fail sends rejected sessions back to the login page and renders
// everything else as an error page.
func (a *Admin) fail(w http.ResponseWriter, r *http.Request, data *PageData, err error) {
	switch proxy.StatusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		a.toLogin(w, r)
		return
	}
	status, title, message := describeError(err)
	logging.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("Admin page backend call failed")
	data.Title = title
	data.Message = message
	a.renderer.renderAdmin(w, status, "error", data)
}
