// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/memberhub/internal/config"
)

const testSecret = "this_is_a_very_long_secret_key_with_32_plus_characters"

func newTestJWTManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, SessionTimeout: time.Hour})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func testSubject() *Subject {
	return &Subject{
		ID:       "member-1",
		Username: "Alice",
		Email:    "alice@example.com",
		Roles:    []string{"member", "editor"},
		Tier:     "basic",
	}
}

func TestNewJWTManager(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.SecurityConfig
		wantErr bool
	}{
		{"valid secret", &config.SecurityConfig{JWTSecret: testSecret, SessionTimeout: time.Hour}, false},
		{"empty secret", &config.SecurityConfig{SessionTimeout: time.Hour}, true},
		{"zero timeout defaults", &config.SecurityConfig{JWTSecret: testSecret}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewJWTManager(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewJWTManager() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && m.Timeout() <= 0 {
				t.Errorf("Timeout() = %v", m.Timeout())
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestJWTManager(t)

	token, expiresAt, err := m.GenerateToken(testSubject())
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("expiresAt %v is not in the future", expiresAt)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "member-1" || claims.Username != "Alice" || claims.Tier != "basic" {
		t.Errorf("claims = %+v", claims)
	}
	if !claims.HasRole("editor") {
		t.Errorf("Roles = %v, want editor", claims.Roles)
	}
}

func TestGenerateToken_RequiresSubjectID(t *testing.T) {
	m := newTestJWTManager(t)
	if _, _, err := m.GenerateToken(&Subject{Username: "nobody"}); err == nil {
		t.Error("GenerateToken() without ID should fail")
	}
	if _, _, err := m.GenerateToken(nil); err == nil {
		t.Error("GenerateToken(nil) should fail")
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	m := newTestJWTManager(t)
	valid, _, err := m.GenerateToken(testSubject())
	if err != nil {
		t.Fatal(err)
	}

	other, err := NewJWTManager(&config.SecurityConfig{JWTSecret: strings.Repeat("x", 40), SessionTimeout: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	foreign, _, _ := other.GenerateToken(testSubject())

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "member-1"},
	})
	noneToken, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"tampered", valid[:len(valid)-2] + "xx"},
		{"wrong secret", foreign},
		{"alg none", noneToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); err == nil {
				t.Error("ValidateToken() should fail")
			}
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	m := newTestJWTManager(t)
	issued := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issued }
	token, _, err := m.GenerateToken(testSubject())
	if err != nil {
		t.Fatal(err)
	}

	m.now = time.Now
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expired token should be rejected")
	}
}
