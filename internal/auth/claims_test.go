// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestDecodeClaimsUnverified(t *testing.T) {
	m := newTestJWTManager(t)
	token, _, err := m.GenerateToken(&Subject{ID: "admin-1", Roles: []string{"admin"}})
	if err != nil {
		t.Fatal(err)
	}

	// Signature is not checked: a corrupted signature still decodes.
	parts := strings.Split(token, ".")
	corrupted := parts[0] + "." + parts[1] + ".invalidsig"

	for _, tok := range []string{token, corrupted} {
		claims, err := DecodeClaimsUnverified(tok)
		if err != nil {
			t.Fatalf("DecodeClaimsUnverified() error = %v", err)
		}
		if !claims.IsAdmin() || claims.Subject != "admin-1" {
			t.Errorf("claims = %+v", claims)
		}
	}
}

func TestDecodeClaimsUnverified_Errors(t *testing.T) {
	if _, err := DecodeClaimsUnverified(" "); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("empty token error = %v, want ErrNoCredentials", err)
	}
	if _, err := DecodeClaimsUnverified("abc"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("malformed token error = %v, want ErrInvalidCredentials", err)
	}
}

func TestClaims_RoleChecks(t *testing.T) {
	c := &Claims{Roles: []string{"member", "editor"}}

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"has member", c.HasRole("member"), true},
		{"lacks admin", c.HasRole("admin"), false},
		{"empty role", c.HasRole(""), false},
		{"any of admin/editor", c.HasAnyRole("admin", "editor"), true},
		{"any of nothing", c.HasAnyRole(), false},
		{"is admin", c.IsAdmin(), false},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestClaims_IsExpired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		claims Claims
		want   bool
	}{
		{"no exp", Claims{}, false},
		{"future", Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}}, false},
		{"past", Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour))}}, true},
	}
	for _, tt := range tests {
		if got := tt.claims.IsExpired(now); got != tt.want {
			t.Errorf("%s: IsExpired() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash must not equal the password")
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Errorf("CheckPassword(correct) error = %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("CheckPassword(wrong) error = %v, want ErrInvalidCredentials", err)
	}
	if err := CheckPassword("not-a-hash", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("CheckPassword(bad hash) error = %v, want ErrInvalidCredentials", err)
	}
}
