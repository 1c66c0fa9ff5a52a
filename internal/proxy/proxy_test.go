// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/metrics"
	"github.com/tomtom215/memberhub/internal/models"
)

type seenRequest struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    string
}

func newUpstream(t *testing.T, handler http.HandlerFunc) (*httptest.Server, chan seenRequest) {
	t.Helper()
	seen := make(chan seenRequest, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen <- seenRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Headers: r.Header.Clone(), Body: string(body)}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func newRouter(t *testing.T, cfg config.UpstreamConfig) (http.Handler, *Proxy) {
	t.Helper()
	p, err := New(cfg, false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r := chi.NewRouter()
	p.Mount(r, FrontendRoutes())
	return r, p
}

func okJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Set-Cookie", "upstream=1")
	_, _ = io.WriteString(w, `{"status":"success","data":{}}`)
}

func TestForward_APIKeyRoute(t *testing.T) {
	upstream, seen := newUpstream(t, okJSON)
	router, _ := newRouter(t, config.UpstreamConfig{BaseURL: upstream.URL, APIKey: "secret-key"})

	req := httptest.NewRequest(http.MethodGet, "/api/content/pages/about?preview=1", nil)
	req.Header.Set("Cookie", "token=abc; other=x")
	req.Header.Set(auth.APIKeyHeader, "spoofed")
	req.Header.Set("Connection", "keep-alive, X-Private")
	req.Header.Set("X-Private", "drop me")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Set-Cookie") != "" {
		t.Error("upstream Set-Cookie leaked to the browser")
	}

	got := <-seen
	if got.Path != "/api/v1/content/pages/about" || got.Query != "preview=1" {
		t.Errorf("upstream path = %s?%s", got.Path, got.Query)
	}
	checks := map[string]string{
		auth.APIKeyHeader: "secret-key",
		authorization:     "Bearer abc",
		"Cookie":          "",
		"X-Private":       "",
		"Accept":          "application/json",
		requestIDHeader:   "req-42",
		forwardedFor:      "192.0.2.1",
		forwardedProto:    "http",
		forwardedHost:     "example.com",
	}
	for name, want := range checks {
		if v := got.Headers.Get(name); v != want {
			t.Errorf("upstream header %s = %q, want %q", name, v, want)
		}
	}
}

func TestForward_BearerRoute(t *testing.T) {
	upstream, seen := newUpstream(t, okJSON)
	router, _ := newRouter(t, config.UpstreamConfig{BaseURL: upstream.URL})
	before := testutil.ToFloat64(metrics.ProxyRequestsTotal.WithLabelValues("chat_send", "401"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", rec.Code)
	}
	if got := testutil.ToFloat64(metrics.ProxyRequestsTotal.WithLabelValues("chat_send", "401")); got != before+1 {
		t.Errorf("proxy counter = %v, want %v", got, before+1)
	}
	select {
	case <-seen:
		t.Fatal("request without token reached upstream")
	default:
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(`{"to":"bob","body":"hi"}`))
	req.AddCookie(&http.Cookie{Name: auth.TokenCookieName, Value: "tok"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := <-seen
	if got.Headers.Get(authorization) != "Bearer tok" || got.Body != `{"to":"bob","body":"hi"}` || got.Method != http.MethodPost {
		t.Errorf("upstream saw %+v", got)
	}
	if got.Headers.Get(auth.APIKeyHeader) != "" {
		t.Error("no API key configured but header was sent")
	}
}

func TestForward_PathParamsEscaped(t *testing.T) {
	upstream, seen := newUpstream(t, okJSON)
	router, _ := newRouter(t, config.UpstreamConfig{BaseURL: upstream.URL + "/backend"})

	req := httptest.NewRequest(http.MethodDelete, "/api/chat/blocks/m-1", nil)
	req.Header.Set(authorization, "Bearer t")
	router.ServeHTTP(httptest.NewRecorder(), req)

	if got := <-seen; got.Path != "/backend/api/v1/chat/blocks/m-1" {
		t.Errorf("upstream path = %s", got.Path)
	}
}

func TestStream_ChatWebSocket(t *testing.T) {
	seen := make(chan seenRequest, 2)
	var upgrader websocket.Upgrader
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- seenRequest{Method: r.Method, Path: r.URL.Path, Headers: r.Header.Clone()}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, append([]byte("echo:"), msg...)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(upstream.Close)

	router, _ := newRouter(t, config.UpstreamConfig{BaseURL: upstream.URL, APIKey: "secret-key"})
	front := httptest.NewServer(router)
	t.Cleanup(front.Close)
	wsURL := "ws" + strings.TrimPrefix(front.URL, "http") + "/api/chat/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("anonymous dial succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous dial response = %v, want 401", resp)
	}
	select {
	case <-seen:
		t.Fatal("anonymous dial reached upstream")
	default:
	}

	header := http.Header{}
	header.Set("Cookie", auth.TokenCookieName+"=abc")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	got := <-seen
	if got.Path != "/api/v1/chat/ws" {
		t.Errorf("upstream path = %s", got.Path)
	}
	checks := map[string]string{
		authorization:     "Bearer abc",
		"Cookie":          "",
		auth.APIKeyHeader: "secret-key",
	}
	for name, want := range checks {
		if v := got.Headers.Get(name); v != want {
			t.Errorf("upstream header %s = %q, want %q", name, v, want)
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, []byte("hi")); err != nil {
		t.Fatal(err)
	}
	if _, msg, err := conn.ReadMessage(); err != nil || string(msg) != "echo:hi" {
		t.Errorf("ReadMessage() = %q, %v", msg, err)
	}
}

func TestSession_LoginSetsCookieLogoutClears(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	upstream, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/login" {
			_ = json.NewEncoder(w).Encode(models.APIResponse{
				Status: "success",
				Data:   models.LoginResponse{Token: "issued-token", ExpiresAt: expires},
			})
			return
		}
		okJSON(w, r)
	})
	router, _ := newRouter(t, config.UpstreamConfig{BaseURL: upstream.URL})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.TokenCookieName || cookies[0].Value != "issued-token" || !cookies[0].HttpOnly {
		t.Fatalf("login cookies = %+v", cookies)
	}
	if !strings.Contains(rec.Body.String(), "issued-token") {
		t.Error("login body not relayed")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	cookies = rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "" || cookies[0].MaxAge >= 0 {
		t.Errorf("logout cookies = %+v", cookies)
	}
}

func TestSession_FailedLoginSetsNoCookie(t *testing.T) {
	upstream, _ := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		auth.WriteError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid email or password")
	})
	router, _ := newRouter(t, config.UpstreamConfig{BaseURL: upstream.URL})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized || len(rec.Result().Cookies()) != 0 {
		t.Errorf("status = %d, cookies = %v", rec.Code, rec.Result().Cookies())
	}
}

func TestBreaker_TransportErrorThenOpen(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	router, p := newRouter(t, config.UpstreamConfig{
		BaseURL:             deadURL,
		Timeout:             time.Second,
		BreakerMinRequests:  1,
		BreakerFailureRatio: 0.5,
		BreakerTimeout:      time.Hour,
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/content/pages/about", nil))
		codes = append(codes, rec.Code)
		if i == 1 && !strings.Contains(rec.Body.String(), "UPSTREAM_UNAVAILABLE") {
			t.Errorf("open circuit body = %s", rec.Body.String())
		}
	}
	if codes[0] != http.StatusBadGateway || codes[1] != http.StatusServiceUnavailable {
		t.Errorf("status codes = %v, want [502 503]", codes)
	}
	if p.State() != "open" {
		t.Errorf("breaker state = %s", p.State())
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues(breakerName)); got != 2 {
		t.Errorf("breaker gauge = %v, want 2", got)
	}
}

func TestForward_Upstream5xxRelayed(t *testing.T) {
	upstream, _ := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		auth.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "boom")
	})
	router, _ := newRouter(t, config.UpstreamConfig{BaseURL: upstream.URL})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=x", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "boom") {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, u := range []string{"", "not a url", "/relative"} {
		if _, err := New(config.UpstreamConfig{BaseURL: u}, false); err == nil {
			t.Errorf("New(%q) should fail", u)
		}
	}
}

func TestRouteTables(t *testing.T) {
	seen := map[string]bool{}
	for _, rt := range append(FrontendRoutes(), AdminRoutes()...) {
		if seen[rt.Name] {
			t.Errorf("duplicate route name %s", rt.Name)
		}
		seen[rt.Name] = true
		for _, m := range paramPattern.FindAllString(rt.Upstream, -1) {
			if !strings.Contains(rt.Pattern, m) {
				t.Errorf("%s: upstream param %s missing from pattern", rt.Name, m)
			}
		}
	}
	if n := len(FrontendRoutes()); n < 20 {
		t.Errorf("frontend routes = %d", n)
	}
}

func TestGetJSON(t *testing.T) {
	upstream, seen := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/missing" {
			auth.WriteError(w, http.StatusNotFound, "NOT_FOUND", "page not found")
			return
		}
		_, _ = io.WriteString(w, `{"status":"success","data":{"slug":"about","title":"About"}}`)
	})
	p, err := New(config.UpstreamConfig{BaseURL: upstream.URL, APIKey: "k"}, false)
	if err != nil {
		t.Fatal(err)
	}

	var page models.Page
	if err := p.GetJSON(context.Background(), "/api/v1/content/pages/about", url.Values{"x": {"1"}}, "tok", &page); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if page.Title != "About" {
		t.Errorf("decoded page = %+v", page)
	}
	got := <-seen
	if got.Query != "x=1" || got.Headers.Get(authorization) != "Bearer tok" || got.Headers.Get(auth.APIKeyHeader) != "k" {
		t.Errorf("backend saw %+v", got)
	}

	err = p.GetJSON(context.Background(), "/api/v1/missing", nil, "", &page)
	if StatusOf(err) != http.StatusNotFound {
		t.Errorf("GetJSON(missing) error = %v", err)
	}
	<-seen
}
