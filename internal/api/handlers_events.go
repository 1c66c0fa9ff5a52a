// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/models"
)

var eventStatuses = map[string]bool{
	models.EventStatusDraft:     true,
	models.EventStatusScheduled: true,
	models.EventStatusPublished: true,
	models.EventStatusCancelled: true,
}

// UpcomingEvents lists published events that have not ended, soonest first.
func (h *Handler) UpcomingEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit := getIntParam(r, "limit", h.defaultPageSize)
	if limit <= 0 || limit > h.maxPageSize {
		limit = h.maxPageSize
	}

	list, err := h.events.Upcoming(r.Context(), h.now(), limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Event{}
	}
	respondData(w, http.StatusOK, list, start)
}

// GetEvent returns a published or cancelled event.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	e, err := h.events.GetPublished(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, e, start)
}

// ListAllEvents returns events in any status for editors.
func (h *Handler) ListAllEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := r.URL.Query().Get("status")
	if status != "" && !eventStatuses[status] {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "unknown event status", nil)
		return
	}

	opts := h.listOptions(r)
	list, total, err := h.events.List(r.Context(), status, opts)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, list, total, opts, start)
}

// CreateEvent stores a new draft event.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.EventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	subject := auth.SubjectFromContext(r.Context())
	e, err := h.events.Create(r.Context(), subject.ID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, e, start)
}

// UpdateEvent edits an event's details.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.EventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	e, err := h.events.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, e, start)
}

// PublishEvent publishes immediately.
func (h *Handler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	e, err := h.events.Publish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, e, start)
}

// ScheduleEvent sets publish_at. The scheduler sweep publishes it once due.
func (h *Handler) ScheduleEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.ScheduleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	e, err := h.events.Schedule(r.Context(), chi.URLParam(r, "id"), req.PublishAt)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, e, start)
}

// CancelEvent marks an event cancelled. It stays visible.
func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	e, err := h.events.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, e, start)
}

// DeleteEvent removes an event.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.events.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"deleted": true}, start)
}
