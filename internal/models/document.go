// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package models

// Document visibility levels.
const (
	VisibilityPrivate = "private"
	VisibilityMembers = "members"
	VisibilityPublic  = "public"
)

// IsValidVisibility checks a visibility value.
func IsValidVisibility(v string) bool {
	return v == VisibilityPrivate || v == VisibilityMembers || v == VisibilityPublic
}

// DocumentFile is the metadata of an uploaded file. The bytes live on disk
// under StoredName.
type DocumentFile struct {
	Base
	OwnerID     string `json:"owner_id"`
	Filename    string `json:"filename"`
	StoredName  string `json:"stored_name"`
	MIMEType    string `json:"mime_type"`
	Extension   string `json:"extension"`
	Size        int64  `json:"size"`
	SHA256      string `json:"sha256"`
	Visibility  string `json:"visibility"`
	Description string `json:"description,omitempty"`
}
