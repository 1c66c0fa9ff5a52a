// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package auth

import (
	"context"
	"errors"

	"github.com/tomtom215/memberhub/internal/models"
)

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type contextKey string

// SubjectContextKey holds the *Subject of an authenticated request.
const SubjectContextKey contextKey = "auth_subject"

// Subject is an authenticated member.
type Subject struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	Tier      string   `json:"tier,omitempty"`
	ExpiresAt int64    `json:"expires_at,omitempty"`
}

// HasRole checks if the subject has a specific role.
func (s *Subject) HasRole(role string) bool {
	return s != nil && containsRole(s.Roles, role)
}

// HasAnyRole checks if the subject has any of the specified roles.
func (s *Subject) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if s.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the subject is an administrator.
func (s *Subject) IsAdmin() bool {
	return s.HasRole(models.RoleAdmin)
}

// SubjectFromClaims converts validated claims into a Subject.
func SubjectFromClaims(claims *Claims) *Subject {
	if claims == nil {
		return nil
	}
	s := &Subject{
		ID:       claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Roles:    claims.Roles,
		Tier:     claims.Tier,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return s
}

// SubjectFromMember builds the token subject for a stored member.
func SubjectFromMember(m *models.Member) *Subject {
	return &Subject{
		ID:       m.ID,
		Username: m.DisplayName,
		Email:    m.Email,
		Roles:    m.Roles,
		Tier:     m.Tier,
	}
}

// ContextWithSubject attaches subject to ctx.
func ContextWithSubject(ctx context.Context, subject *Subject) context.Context {
	return context.WithValue(ctx, SubjectContextKey, subject)
}

// SubjectFromContext returns the authenticated subject, or nil.
func SubjectFromContext(ctx context.Context) *Subject {
	subject, ok := ctx.Value(SubjectContextKey).(*Subject)
	if !ok {
		return nil
	}
	return subject
}
