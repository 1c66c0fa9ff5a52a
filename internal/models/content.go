// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package models

import "time"

// Page statuses.
const (
	PageStatusDraft     = "draft"
	PageStatusPublished = "published"
)

// Page is a CMS page addressed by slug.
type Page struct {
	Base
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary,omitempty"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	Premium     bool       `json:"premium"`
	AuthorID    string     `json:"author_id,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// Placeholder marks built-in content returned when nothing is stored.
	Placeholder bool `json:"placeholder,omitempty"`
}

// IsPublished reports whether the page is visible to the public.
func (p *Page) IsPublished() bool {
	return p.Status == PageStatusPublished
}

// PageRequest is the body for creating or replacing a page.
type PageRequest struct {
	Slug    string `json:"slug" validate:"required,max=64,slug"`
	Title   string `json:"title" validate:"required,min=1,max=200"`
	Summary string `json:"summary" validate:"max=500"`
	Body    string `json:"body" validate:"max=200000"`
	Premium bool   `json:"premium"`
}
