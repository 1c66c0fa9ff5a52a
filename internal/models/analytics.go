// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package models

// AnalyticsEvent is a tracked frontend interaction.
type AnalyticsEvent struct {
	Base
	Name       string            `json:"name"`
	Path       string            `json:"path,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	MemberID   string            `json:"member_id,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
}

// TrackRequest is the body of POST /api/v1/track.
type TrackRequest struct {
	Name       string            `json:"name" validate:"required,min=1,max=64"`
	Path       string            `json:"path" validate:"max=2048"`
	Properties map[string]string `json:"properties" validate:"max=32,dive,keys,max=64,endkeys,max=512"`
}

// AnalyticsSummary counts tracked events by name.
type AnalyticsSummary struct {
	Total  int            `json:"total"`
	ByName map[string]int `json:"by_name"`
}

// SearchResult is one hit returned by the search endpoint.
type SearchResult struct {
	Type    string  `json:"type"`
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet,omitempty"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
}

// Search result types.
const (
	SearchTypePage     = "page"
	SearchTypeEvent    = "event"
	SearchTypeDocument = "document"
)
