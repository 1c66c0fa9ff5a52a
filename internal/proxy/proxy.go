// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

// Package proxy forwards the frontend and admin API routes to the backend.
//
// Each route rewrites its path onto the upstream, swaps browser credentials
// for upstream ones (API key or bearer token) and strips hop-by-hop headers
// and cookies. Calls go through a gobreaker circuit breaker: an open circuit
// answers 503 UPSTREAM_UNAVAILABLE without contacting the backend, transport
// failures answer 502 UPSTREAM_ERROR. Login routes move the issued token into
// the HttpOnly session cookie.
package proxy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/metrics"
	"github.com/tomtom215/memberhub/internal/models"
)

const (
	breakerName      = "upstream-api"
	maxSessionBody   = 1 << 20
	requestIDHeader  = "X-Request-ID"
	forwardedFor     = "X-Forwarded-For"
	forwardedHost    = "X-Forwarded-Host"
	forwardedProto   = "X-Forwarded-Proto"
	authorization    = "Authorization"
	statusClientGone = 499
)

// Hop-by-hop headers (RFC 7230 section 6.1) plus headers the proxy owns.
var strippedRequestHeaders = []string{
	"Connection", "Proxy-Connection", "Keep-Alive", "Proxy-Authenticate",
	"Proxy-Authorization", "Te", "Trailer", "Transfer-Encoding", "Upgrade",
	"Cookie", authorization, auth.APIKeyHeader,
	forwardedFor, forwardedHost, forwardedProto,
}

var strippedResponseHeaders = []string{
	"Connection", "Proxy-Connection", "Keep-Alive", "Proxy-Authenticate",
	"Proxy-Authorization", "Te", "Trailer", "Transfer-Encoding", "Upgrade",
	"Set-Cookie", "Content-Length",
}

var paramPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// upstreamStatusError marks a 5xx answer so the breaker counts it as a
// failure while the response is still relayed.
type upstreamStatusError struct{ code int }

func (e *upstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.code)
}

// Proxy forwards requests to the backend API.
type Proxy struct {
	base         *url.URL
	apiKey       string
	cookieSecure bool
	client       *http.Client
	breaker      *gobreaker.CircuitBreaker[*http.Response]
}

// New creates a proxy for cfg.BaseURL.
func New(cfg config.UpstreamConfig, cookieSecure bool) (*Proxy, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid upstream base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	p := &Proxy{
		base:         base,
		apiKey:       cfg.APIKey,
		cookieSecure: cookieSecure,
		client: &http.Client{
			Timeout: timeout,
			// Redirects are the browser's business.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		breaker: newBreaker(cfg),
	}
	return p, nil
}

func newBreaker(cfg config.UpstreamConfig) *gobreaker.CircuitBreaker[*http.Response] {
	minRequests := cfg.BreakerMinRequests
	if minRequests == 0 {
		minRequests = 10
	}
	ratio := cfg.BreakerFailureRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.6
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= ratio {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening upstream circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.RecordBreakerTransition(name, stateToString(from), stateToString(to), stateToFloat(to))
		},
	})
}

// State returns the breaker state name.
func (p *Proxy) State() string {
	return stateToString(p.breaker.State())
}

// Mount registers routes on r.
func (p *Proxy) Mount(r chi.Router, routes []Route) {
	for _, route := range routes {
		r.Method(route.Method, route.Pattern, p.Handler(route))
	}
}

// Handler returns the http.Handler for one route.
func (p *Proxy) Handler(route Route) http.Handler {
	if route.Upgrade {
		return p.streamHandler(route)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := p.forward(route, w, r)
		metrics.RecordProxyRequest(route.Name, strconv.Itoa(status), time.Since(start))
	})
}

func (p *Proxy) forward(route Route, w http.ResponseWriter, r *http.Request) int {
	token, hasToken := sessionToken(r)
	if route.Mode == ModeBearer && !hasToken {
		auth.WriteError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required")
		return http.StatusUnauthorized
	}

	target := p.targetURL(route, r)
	out, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		auth.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build upstream request")
		return http.StatusInternalServerError
	}
	out.ContentLength = r.ContentLength
	p.prepareHeaders(out.Header, r, token, hasToken)

	resp, err := p.breaker.Execute(func() (*http.Response, error) {
		resp, err := p.client.Do(out)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &upstreamStatusError{code: resp.StatusCode}
		}
		return resp, nil
	})

	var statusErr *upstreamStatusError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		auth.WriteError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Backend temporarily unavailable")
		return http.StatusServiceUnavailable
	case err != nil && !errors.As(err, &statusErr):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		if r.Context().Err() != nil {
			return statusClientGone
		}
		logging.Ctx(r.Context()).Warn().Err(err).Str("route", route.Name).Msg("Upstream request failed")
		auth.WriteError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Backend request failed")
		return http.StatusBadGateway
	case statusErr != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	}
	defer resp.Body.Close()

	return p.relay(route, w, resp)
}

func (p *Proxy) relay(route Route, w http.ResponseWriter, resp *http.Response) int {
	copyHeaders(w.Header(), resp.Header, strippedResponseHeaders)

	switch route.Session {
	case SessionLogout:
		auth.ClearTokenCookie(w, p.cookieSecure)
	case SessionLogin:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxSessionBody))
		if err != nil {
			auth.WriteError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to read backend response")
			return http.StatusBadGateway
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			p.storeSession(w, body)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(body)
		return resp.StatusCode
	}

	if resp.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logging.Debug().Err(err).Str("route", route.Name).Msg("Proxy response copy interrupted")
	}
	return resp.StatusCode
}

func (p *Proxy) storeSession(w http.ResponseWriter, body []byte) {
	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&envelope); err != nil || envelope.Data.Token == "" {
		logging.Warn().Err(err).Msg("Login response carried no token")
		return
	}
	auth.SetTokenCookie(w, envelope.Data.Token, envelope.Data.ExpiresAt, p.cookieSecure)
}

// streamHandler proxies upgrade requests with httputil.ReverseProxy.
func (p *Proxy) streamHandler(route Route) http.Handler {
	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			token, hasToken := sessionToken(pr.In)
			pr.Out.URL = p.targetURL(route, pr.In)
			pr.Out.Host = pr.Out.URL.Host
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del(authorization)
			pr.Out.Header.Del(auth.APIKeyHeader)
			if p.apiKey != "" {
				pr.Out.Header.Set(auth.APIKeyHeader, p.apiKey)
			}
			if hasToken {
				pr.Out.Header.Set(authorization, "Bearer "+token)
			}
			pr.Out.Header.Set(requestIDHeader, requestID(pr.In))
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logging.Ctx(r.Context()).Warn().Err(err).Str("route", route.Name).Msg("Upstream stream failed")
			auth.WriteError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Backend request failed")
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := sessionToken(r); route.Mode == ModeBearer && !ok {
			auth.WriteError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required")
			metrics.RecordProxyRequest(route.Name, "401", 0)
			return
		}
		start := time.Now()
		rp.ServeHTTP(w, r)
		metrics.RecordProxyRequest(route.Name, "stream", time.Since(start))
	})
}

func (p *Proxy) targetURL(route Route, r *http.Request) *url.URL {
	path := paramPattern.ReplaceAllStringFunc(route.Upstream, func(m string) string {
		return url.PathEscape(chi.URLParam(r, m[1:len(m)-1]))
	})
	target := *p.base
	target.Path = p.base.Path + path
	target.RawPath = ""
	target.RawQuery = r.URL.RawQuery
	return &target
}

func (p *Proxy) prepareHeaders(out http.Header, in *http.Request, token string, hasToken bool) {
	copyHeaders(out, in.Header, strippedRequestHeaders)
	for _, name := range connectionTokens(in.Header) {
		out.Del(name)
	}

	if p.apiKey != "" {
		out.Set(auth.APIKeyHeader, p.apiKey)
	}
	if hasToken {
		out.Set(authorization, "Bearer "+token)
	}

	clientIP := in.RemoteAddr
	if host, _, err := net.SplitHostPort(in.RemoteAddr); err == nil {
		clientIP = host
	}
	if prior := in.Header.Get(forwardedFor); prior != "" {
		clientIP = prior + ", " + clientIP
	}
	out.Set(forwardedFor, clientIP)
	out.Set(forwardedHost, in.Host)
	proto := "http"
	if in.TLS != nil {
		proto = "https"
	}
	out.Set(forwardedProto, proto)
	out.Set(requestIDHeader, requestID(in))
}

// sessionToken reads the browser's token from the Authorization header or
// the session cookie.
func sessionToken(r *http.Request) (string, bool) {
	token, err := auth.TokenFromRequest(r)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

func requestID(r *http.Request) string {
	if id := logging.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	if id := r.Header.Get(requestIDHeader); id != "" {
		return id
	}
	return logging.GenerateRequestID()
}

func copyHeaders(dst, src http.Header, skip []string) {
	for name, values := range src {
		if containsFold(skip, name) {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

func connectionTokens(h http.Header) []string {
	var out []string
	for _, v := range h.Values("Connection") {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
