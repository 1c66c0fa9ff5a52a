// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package validation

import (
	"strings"
	"testing"
	"time"
)

type testRequest struct {
	Email string   `json:"email" validate:"required,email"`
	Name  string   `json:"name" validate:"required,min=2,max=10"`
	Slug  string   `json:"slug" validate:"omitempty,slug"`
	Roles []string `json:"roles" validate:"omitempty,dive,oneof=member editor admin"`
}

type testWindow struct {
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     testRequest
		wantField string
		wantMsg   string
	}{
		{
			name:  "valid",
			input: testRequest{Email: "a@example.com", Name: "Ann", Slug: "about-us", Roles: []string{"editor"}},
		},
		{
			name:      "missing email uses json name",
			input:     testRequest{Name: "Ann"},
			wantField: "email",
			wantMsg:   "email is required",
		},
		{
			name:      "short name",
			input:     testRequest{Email: "a@example.com", Name: "A"},
			wantField: "name",
			wantMsg:   "name must be at least 2 characters",
		},
		{
			name:      "bad slug",
			input:     testRequest{Email: "a@example.com", Name: "Ann", Slug: "About Us"},
			wantField: "slug",
		},
		{
			name:      "unknown role",
			input:     testRequest{Email: "a@example.com", Name: "Ann", Roles: []string{"root"}},
			wantField: "roles[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() expected error")
			}
			got := err.Errors()[0]
			if got.Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", got.Field(), tt.wantField)
			}
			if tt.wantMsg != "" && got.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", got.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidateStruct_GtField(t *testing.T) {
	now := time.Now()
	if err := ValidateStruct(&testWindow{StartsAt: now, EndsAt: now.Add(time.Hour)}); err != nil {
		t.Errorf("valid window rejected: %v", err)
	}
	err := ValidateStruct(&testWindow{StartsAt: now, EndsAt: now.Add(-time.Hour)})
	if err == nil {
		t.Fatal("ends_at before starts_at should fail")
	}
	if err.Errors()[0].Tag() != "gtfield" {
		t.Errorf("Tag() = %q, want gtfield", err.Errors()[0].Tag())
	}
}

func TestToAPIError(t *testing.T) {
	err := ValidateStruct(&testRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Errorf("multiple errors should list fields, got %v", apiErr.Details)
	}
	if !strings.Contains(apiErr.Message, "email is required") {
		t.Errorf("Message = %q", apiErr.Message)
	}

	single := ValidateStruct(&testRequest{Email: "a@example.com"}).ToAPIError()
	if single.Details["field"] != "name" {
		t.Errorf("single error Details = %v", single.Details)
	}
}

func TestIsSlug(t *testing.T) {
	tests := map[string]bool{
		"home":       true,
		"about-us":   true,
		"faq2":       true,
		"":           false,
		"About":      false,
		"a--b":       false,
		"-lead":      false,
		"trail-":     false,
		"with space": false,
	}
	for in, want := range tests {
		if got := IsSlug(in); got != want {
			t.Errorf("IsSlug(%q) = %v, want %v", in, got, want)
		}
	}
}
