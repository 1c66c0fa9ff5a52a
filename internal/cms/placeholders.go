// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package cms

import "github.com/tomtom215/memberhub/internal/models"

// placeholders is served for built-in slugs until an editor publishes a page.
var placeholders = map[string]models.Page{
	"home": {
		Slug:    "home",
		Title:   "Welcome to Memberhub",
		Summary: "A home for our members.",
		Body:    "Join the community to chat with other members, attend events and access member documents.",
	},
	"about": {
		Slug:    "about",
		Title:   "About Us",
		Summary: "Who we are.",
		Body:    "This page has not been written yet. Editors can publish an \"about\" page from the admin portal.",
	},
	"membership": {
		Slug:    "membership",
		Title:   "Membership",
		Summary: "Choose the tier that fits you.",
		Body:    "Free members can browse events and search. Basic adds chat and documents. Premium unlocks premium content.",
	},
	"contact": {
		Slug:    "contact",
		Title:   "Contact",
		Summary: "Get in touch.",
		Body:    "Contact details will appear here once published.",
	},
}

// PlaceholderSlugs lists the built-in slugs.
func PlaceholderSlugs() []string {
	return []string{"home", "about", "membership", "contact"}
}

func placeholder(slug string) (*models.Page, bool) {
	p, ok := placeholders[slug]
	if !ok {
		return nil, false
	}
	p.ID = "placeholder-" + slug
	p.Status = models.PageStatusPublished
	p.Placeholder = true
	return &p, true
}
