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

// ListPages returns published pages.
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	opts := h.listOptions(r)
	pages, total, err := h.pages.ListPublished(r.Context(), opts)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, pages, total, opts, start)
}

// GetPage returns a published page by slug, or the built-in placeholder for
// well-known slugs. Premium pages need the premium_content feature.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())
	page, err := h.pages.GetPage(r.Context(), chi.URLParam(r, "slug"), subject)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, page, start)
}

// AdminListPages returns pages in any status. Optional status filter.
func (h *Handler) AdminListPages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := r.URL.Query().Get("status")
	if status != "" && status != models.PageStatusDraft && status != models.PageStatusPublished {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "status must be draft or published", nil)
		return
	}

	opts := h.listOptions(r)
	pages, total, err := h.pages.List(r.Context(), status, opts)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, pages, total, opts, start)
}

// AdminGetPage returns a page by ID regardless of status.
func (h *Handler) AdminGetPage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	page, err := h.pages.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, page, start)
}

// CreatePage stores a new draft.
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.PageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	subject := auth.SubjectFromContext(r.Context())
	page, err := h.pages.Create(r.Context(), subject.ID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, page, start)
}

// UpdatePage replaces a page's content.
func (h *Handler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.PageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	page, err := h.pages.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, page, start)
}

// PublishPage makes a page visible.
func (h *Handler) PublishPage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	page, err := h.pages.Publish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, page, start)
}

// UnpublishPage returns a page to draft.
func (h *Handler) UnpublishPage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	page, err := h.pages.Unpublish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, page, start)
}

// DeletePage removes a page.
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.pages.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"deleted": true}, start)
}
