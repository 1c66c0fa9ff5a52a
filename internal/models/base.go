// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package models

import (
	"time"

	"github.com/google/uuid"
)

// Base carries the identity and timestamps shared by stored documents.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBase returns a Base with a fresh UUID and both timestamps set to now.
func NewBase(now time.Time) Base {
	now = now.UTC()
	return Base{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
}

// DocumentID implements store.Document.
func (b *Base) DocumentID() string { return b.ID }

// DocumentCreatedAt implements store.Document.
func (b *Base) DocumentCreatedAt() time.Time { return b.CreatedAt }

// Touch sets UpdatedAt.
func (b *Base) Touch(now time.Time) { b.UpdatedAt = now.UTC() }
