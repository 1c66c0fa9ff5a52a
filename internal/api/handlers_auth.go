// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/models"
)

// Register creates a member account and returns a session token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.members.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, resp, start)
}

// Login exchanges credentials for a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.members.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		logging.Ctx(r.Context()).Info().Err(err).Msg("Login rejected")
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, resp, start)
}

// Logout ends a cookie session for browsers talking to the API directly.
// Tokens are stateless; the frontend proxy clears its own cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	auth.ClearTokenCookie(w, h.cfg.Security.CookieSecure)
	respondData(w, http.StatusOK, map[string]bool{"logged_out": true}, start)
}

// Me returns the authenticated member.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())
	m, err := h.members.Get(r.Context(), subject.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, m.View(), start)
}
