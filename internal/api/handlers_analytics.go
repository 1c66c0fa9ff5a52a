// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/memberhub/internal/analytics"
	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/models"
)

// defaultSummaryWindow is used when the summary request has no since.
const defaultSummaryWindow = 7 * 24 * time.Hour

// Track accepts one analytics event and publishes it for the consumer.
// Responds 202 with the event ID, or 204 when analytics is disabled.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.TrackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	enrich := analytics.Enrichment{
		RequestID: logging.RequestIDFromContext(r.Context()),
		UserAgent: r.UserAgent(),
	}
	if subject := auth.SubjectFromContext(r.Context()); subject != nil {
		enrich.MemberID = subject.ID
	}

	event, err := h.tracker.Track(r.Context(), req, enrich)
	if errors.Is(err, analytics.ErrDisabled) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusAccepted, map[string]string{"id": event.ID}, start)
}

// AnalyticsSummary returns event counts per name since a point in time.
//
// Query parameters: since (RFC3339, default seven days ago).
func (h *Handler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	since := h.now().Add(-defaultSummaryWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "since must be an RFC3339 timestamp", nil)
			return
		}
		since = t
	}

	summary, err := analytics.Summary(r.Context(), h.analytics, since)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, summary, start)
}

// PerformanceStats returns per-route latency statistics.
func (h *Handler) PerformanceStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondData(w, http.StatusOK, h.perfMon.GetStats(), start)
}
