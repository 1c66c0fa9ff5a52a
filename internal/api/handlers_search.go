// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/search"
)

// Search runs a term search over pages, events and documents.
//
// Query parameters: q (required), type (comma list of page,event,document),
// limit. Members whose tier lacks the search feature only see public results.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())
	if subject != nil && !h.tiers.Allowed(r.Context(), subject, config.FeatureSearch) {
		subject = nil
	}

	results, err := h.search.Search(r.Context(), subject, search.Query{
		Text:  r.URL.Query().Get("q"),
		Types: parseCommaSeparated(r.URL.Query().Get("type")),
		Limit: getIntParam(r, "limit", 0),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, results, start)
}

// MembershipFeatures returns the caller's feature flags. Anonymous callers
// get every flag off.
func (h *Handler) MembershipFeatures(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	flags := h.tiers.FlagsFor(r.Context(), auth.SubjectFromContext(r.Context()))
	respondData(w, http.StatusOK, flags, start)
}

type tierView struct {
	Name     string   `json:"name"`
	Features []string `json:"features"`
	Default  bool     `json:"default"`
}

// MembershipTiers lists the configured tiers and their features.
func (h *Handler) MembershipTiers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	tiers := h.tiers.Tiers()
	out := make([]tierView, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, tierView{
			Name:     t,
			Features: h.tiers.Features(t),
			Default:  t == h.tiers.DefaultTier(),
		})
	}
	respondData(w, http.StatusOK, out, start)
}
