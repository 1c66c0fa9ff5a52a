// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

/*
Package models defines data structures for Memberhub.

It is the single source of truth for stored documents, API request bodies and
the response envelope shared by every HTTP endpoint.

Stored Documents (implement store.Document):
  - Member: account, roles and membership tier
  - Page: CMS content addressed by slug
  - ChatMessage and ChatBlock: direct messages and user blocking
  - Event: published and scheduled events
  - DocumentFile: uploaded file metadata
  - AnalyticsEvent: tracked frontend events

API Models:
  - APIResponse, APIError, Metadata: standard envelope
  - *Request types: validated request bodies (go-playground/validator tags)

Documents embed Base, which carries the ID and timestamps used by the store
for ordering.
*/
package models
