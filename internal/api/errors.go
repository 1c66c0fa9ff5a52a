// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/chat"
	"github.com/tomtom215/memberhub/internal/cms"
	"github.com/tomtom215/memberhub/internal/documents"
	"github.com/tomtom215/memberhub/internal/events"
	"github.com/tomtom215/memberhub/internal/members"
	"github.com/tomtom215/memberhub/internal/membership"
	"github.com/tomtom215/memberhub/internal/search"
	"github.com/tomtom215/memberhub/internal/store"
)

// Error codes for API responses
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeAuthentication  = "AUTHENTICATION_ERROR"
	ErrCodeAuthorization   = "AUTHORIZATION_ERROR"
	ErrCodeFeatureDisabled = "FEATURE_DISABLED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeTooLarge        = "PAYLOAD_TOO_LARGE"
	ErrCodeUnsupportedType = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// errorMapping maps a service sentinel to a response. The sentinel's own
// text is the client message.
type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{store.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{members.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{cms.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{events.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{documents.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{chat.ErrUnknownMember, http.StatusNotFound, ErrCodeNotFound},
	{chat.ErrNotBlocked, http.StatusNotFound, ErrCodeNotFound},

	{store.ErrConflict, http.StatusConflict, ErrCodeConflict},
	{members.ErrEmailTaken, http.StatusConflict, ErrCodeConflict},
	{cms.ErrSlugTaken, http.StatusConflict, ErrCodeConflict},
	{chat.ErrAlreadyBlocked, http.StatusConflict, ErrCodeConflict},
	{events.ErrInvalidTransition, http.StatusConflict, ErrCodeConflict},

	{auth.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeAuthentication},
	{auth.ErrNoCredentials, http.StatusUnauthorized, ErrCodeAuthentication},

	{members.ErrInactive, http.StatusForbidden, ErrCodeAuthorization},
	{members.ErrSelfDemotion, http.StatusForbidden, ErrCodeAuthorization},
	{chat.ErrBlocked, http.StatusForbidden, ErrCodeAuthorization},
	{documents.ErrForbidden, http.StatusForbidden, ErrCodeAuthorization},
	{cms.ErrPremium, http.StatusForbidden, ErrCodeFeatureDisabled},
	{membership.ErrFeatureDisabled, http.StatusForbidden, ErrCodeFeatureDisabled},

	{chat.ErrRateLimited, http.StatusTooManyRequests, ErrCodeRateLimited},
	{documents.ErrTooLarge, http.StatusRequestEntityTooLarge, ErrCodeTooLarge},
	{documents.ErrTypeNotAllowed, http.StatusUnsupportedMediaType, ErrCodeUnsupportedType},

	{members.ErrInvalidRole, http.StatusBadRequest, ErrCodeValidation},
	{members.ErrUnknownTier, http.StatusBadRequest, ErrCodeValidation},
	{chat.ErrEmptyBody, http.StatusBadRequest, ErrCodeValidation},
	{chat.ErrBodyTooLong, http.StatusBadRequest, ErrCodeValidation},
	{chat.ErrSelf, http.StatusBadRequest, ErrCodeValidation},
	{events.ErrInvalidTimes, http.StatusBadRequest, ErrCodeValidation},
	{documents.ErrEmpty, http.StatusBadRequest, ErrCodeValidation},
	{documents.ErrInvalidVisibility, http.StatusBadRequest, ErrCodeValidation},
	{search.ErrEmptyQuery, http.StatusBadRequest, ErrCodeValidation},
}

// classifyError returns the status, code and client message for err.
// Unknown errors are internal and get a generic message.
func classifyError(err error) (int, string, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code, m.target.Error()
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal, "Internal server error"
}
