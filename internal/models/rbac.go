// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package models

// Role constants define the standard roles in the system.
// These align with the Casbin policy embedded in internal/authz.
const (
	// RoleMember is the default role for every registered account.
	RoleMember = "member"

	// RoleEditor manages CMS pages and events and inherits member permissions.
	RoleEditor = "editor"

	// RoleAdmin manages members and inherits editor permissions.
	RoleAdmin = "admin"
)

// ValidRoles contains all valid role names for validation.
var ValidRoles = []string{RoleMember, RoleEditor, RoleAdmin}

// IsValidRole checks if a role name is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
