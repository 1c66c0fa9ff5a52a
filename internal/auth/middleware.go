// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/models"
)

// TokenCookieName is the cookie holding the session token in browsers.
const TokenCookieName = "token"

// APIKeyHeader carries server-to-server API keys.
const APIKeyHeader = "X-API-Key"

// ActiveCheck returns an error when the member behind a valid token may no
// longer use the API (for example after deactivation).
type ActiveCheck func(ctx context.Context, memberID string) error

// Middleware provides authentication middleware for chi routers.
type Middleware struct {
	jwtManager  *JWTManager
	apiKeys     [][]byte
	activeCheck ActiveCheck
}

// NewMiddleware creates authentication middleware. With no API keys
// configured RequireAPIKey lets every request through.
func NewMiddleware(jwtManager *JWTManager, apiKeys []string) *Middleware {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if len(keys) == 0 {
		logging.Warn().Msg("No API keys configured: server-to-server routes accept any caller")
	}
	return &Middleware{jwtManager: jwtManager, apiKeys: keys}
}

// WithActiveCheck installs a check run after every successful token validation.
func (m *Middleware) WithActiveCheck(check ActiveCheck) *Middleware {
	m.activeCheck = check
	return m
}

// TokenFromRequest extracts a bearer token from the Authorization header or
// the token cookie. The header wins when both are present.
func TokenFromRequest(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", ErrInvalidCredentials
		}
		return strings.TrimSpace(parts[1]), nil
	}

	cookie, err := r.Cookie(TokenCookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoCredentials
	}
	return cookie.Value, nil
}

func (m *Middleware) subjectFromRequest(r *http.Request) (*Subject, error) {
	token, err := TokenFromRequest(r)
	if err != nil {
		return nil, err
	}
	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, errors.Join(ErrInvalidCredentials, err)
	}
	subject := SubjectFromClaims(claims)
	if m.activeCheck != nil {
		if err := m.activeCheck(r.Context(), subject.ID); err != nil {
			return nil, errors.Join(ErrInvalidCredentials, err)
		}
	}
	return subject, nil
}

// Authenticate rejects requests without a valid token and attaches the
// Subject to the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.subjectFromRequest(r)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Authentication failed")
			if errors.Is(err, ErrNoCredentials) {
				WriteError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required")
				return
			}
			WriteError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withSubject(r.Context(), subject)))
	})
}

// Optional attaches the Subject when a valid token is present and otherwise
// serves the request anonymously.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.subjectFromRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSubject(r.Context(), subject)))
	})
}

// RequireRole allows the request if the subject holds any of roles. Admins
// always pass. Must run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := SubjectFromContext(r.Context())
			if subject == nil {
				WriteError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required")
				return
			}
			if !subject.IsAdmin() && !subject.HasAnyRole(roles...) {
				logging.Ctx(r.Context()).Warn().
					Str("member_id", subject.ID).
					Strs("required_roles", roles).
					Msg("Role check failed")
				WriteError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAPIKey checks X-API-Key against the configured keys in constant time.
func (m *Middleware) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.apiKeys) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		if !m.ValidAPIKey(r.Header.Get(APIKeyHeader)) {
			WriteError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ValidAPIKey reports whether key matches a configured key.
func (m *Middleware) ValidAPIKey(key string) bool {
	if key == "" {
		return false
	}
	match := 0
	for _, k := range m.apiKeys {
		match |= subtle.ConstantTimeCompare([]byte(key), k)
	}
	return match == 1
}

func withSubject(ctx context.Context, subject *Subject) context.Context {
	ctx = ContextWithSubject(ctx, subject)
	return logging.ContextWithMemberID(ctx, subject.ID)
}

// WriteError writes the standard JSON error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    &models.APIError{Code: code, Message: message},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Failed to encode auth error response")
	}
}
