// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package authz

import (
	"net/http"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/logging"
)

// Middleware provides authorization middleware for chi routes.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware creates a new authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Authorize allows the request when the authenticated subject may perform
// action on object. Must run after auth.Middleware.Authenticate.
func (m *Middleware) Authorize(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := auth.SubjectFromContext(r.Context())
			if subject == nil {
				auth.WriteError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required")
				return
			}

			allowed, err := m.enforcer.EnforceWithRoles(subject.ID, subject.Roles, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
				auth.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Authorization check failed")
				return
			}
			if !allowed {
				logging.Ctx(r.Context()).Warn().
					Str("object", object).
					Str("action", action).
					Strs("roles", subject.Roles).
					Msg("Authorization denied")
				auth.WriteError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Can reports whether the subject may perform action on object. Errors deny.
func (m *Middleware) Can(subject *auth.Subject, object, action string) bool {
	if subject == nil {
		return false
	}
	allowed, err := m.enforcer.EnforceWithRoles(subject.ID, subject.Roles, object, action)
	if err != nil {
		logging.Error().Err(err).Msg("Authorization error")
		return false
	}
	return allowed
}
