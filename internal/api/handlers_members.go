// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/members"
	"github.com/tomtom215/memberhub/internal/models"
)

// GetProfile returns the caller's profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	h.Me(w, r)
}

// UpdateProfile edits the caller's display name, bio and avatar.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	subject := auth.SubjectFromContext(r.Context())
	m, err := h.members.UpdateProfile(r.Context(), subject.ID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, m.View(), start)
}

// ListMembers returns members for the admin portal.
//
// Query parameters: q, role, tier, active (true|false), limit, offset.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	filter := members.ListFilter{
		Query: q.Get("q"),
		Role:  q.Get("role"),
		Tier:  q.Get("tier"),
	}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "active must be true or false", nil)
			return
		}
		filter.Active = &active
	}

	opts := h.listOptions(r)
	list, total, err := h.members.List(r.Context(), filter, opts)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	views := make([]models.MemberView, 0, len(list))
	for _, m := range list {
		views = append(views, m.View())
	}
	respondList(w, views, total, opts, start)
}

// GetMember returns one member.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	m, err := h.members.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, m.View(), start)
}

// SetMemberRoles replaces a member's roles.
func (h *Handler) SetMemberRoles(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.SetRolesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	actor := auth.SubjectFromContext(r.Context())
	id := chi.URLParam(r, "id")
	m, err := h.members.SetRoles(r.Context(), actor.ID, id, req.Roles)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("actor_id", actor.ID).
		Str("member_id", id).
		Strs("roles", req.Roles).
		Msg("Member roles changed")
	respondData(w, http.StatusOK, m.View(), start)
}

// SetMemberTier moves a member to another membership tier.
func (h *Handler) SetMemberTier(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.SetTierRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	m, err := h.members.SetTier(r.Context(), chi.URLParam(r, "id"), req.Tier)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, m.View(), start)
}

// DeactivateMember blocks a member from logging in. Existing tokens stop
// working on their next request.
func (h *Handler) DeactivateMember(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor := auth.SubjectFromContext(r.Context())
	m, err := h.members.Deactivate(r.Context(), actor.ID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, m.View(), start)
}

// ReactivateMember restores a deactivated member.
func (h *Handler) ReactivateMember(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	m, err := h.members.Reactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, m.View(), start)
}
