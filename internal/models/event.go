// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package models

import "time"

// Event statuses.
const (
	EventStatusDraft     = "draft"
	EventStatusScheduled = "scheduled"
	EventStatusPublished = "published"
	EventStatusCancelled = "cancelled"
)

// Event is a member event such as a meetup or webinar.
type Event struct {
	Base
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
	Status      string     `json:"status"`
	PublishAt   *time.Time `json:"publish_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
}

// IsDue reports whether a scheduled event should be published at now.
func (e *Event) IsDue(now time.Time) bool {
	return e.Status == EventStatusScheduled && e.PublishAt != nil && !e.PublishAt.After(now)
}

// EventRequest is the body for creating or updating an event.
type EventRequest struct {
	Title       string    `json:"title" validate:"required,min=1,max=200"`
	Description string    `json:"description" validate:"max=10000"`
	Location    string    `json:"location" validate:"max=200"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

// ScheduleRequest is the body of POST /api/v1/events/{id}/schedule.
type ScheduleRequest struct {
	PublishAt time.Time `json:"publish_at" validate:"required"`
}
