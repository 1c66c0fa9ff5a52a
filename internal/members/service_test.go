// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package members

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/membership"
	"github.com/tomtom215/memberhub/internal/models"
	"github.com/tomtom215/memberhub/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })

	jm, err := auth.NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "this_is_a_very_long_secret_key_with_32_plus_characters",
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	tiers := membership.NewProvider(config.MembershipConfig{
		DefaultTier: "free",
		Tiers:       map[string][]string{"free": {"events"}, "premium": {"events", "chat"}},
	})
	return NewService(NewCollection(s), jm, tiers, bcrypt.MinCost)
}

func register(t *testing.T, svc *Service, email string) *models.LoginResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: email, Password: "password123", DisplayName: "Test " + email,
	})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	return resp
}

func TestRegister(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	resp := register(t, svc, "  Alice@Example.com ")
	if resp.Token == "" {
		t.Error("Register() should return a token")
	}
	m := resp.Member
	if m.Email != "alice@example.com" {
		t.Errorf("Email = %q, want normalized", m.Email)
	}
	if len(m.Roles) != 1 || m.Roles[0] != models.RoleMember {
		t.Errorf("Roles = %v, want [member]", m.Roles)
	}
	if m.Tier != "free" || !m.Active {
		t.Errorf("Tier = %q, Active = %v", m.Tier, m.Active)
	}

	_, err := svc.Register(ctx, models.RegisterRequest{Email: "ALICE@example.com", Password: "password123", DisplayName: "Dup"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate Register() error = %v, want ErrEmailTaken", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reg := register(t, svc, "bob@example.com")

	resp, err := svc.Login(ctx, "BOB@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.Member.LastLoginAt == nil {
		t.Error("LastLoginAt not recorded")
	}

	if _, err := svc.Login(ctx, "bob@example.com", "wrong"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v", err)
	}

	if _, err := svc.Deactivate(ctx, "admin-id", reg.Member.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "bob@example.com", "password123"); !errors.Is(err, ErrInactive) {
		t.Errorf("deactivated login error = %v, want ErrInactive", err)
	}
	if err := svc.CheckActive(ctx, reg.Member.ID); !errors.Is(err, ErrInactive) {
		t.Errorf("CheckActive() error = %v, want ErrInactive", err)
	}

	if _, err := svc.Reactivate(ctx, reg.Member.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "bob@example.com", "password123"); err != nil {
		t.Errorf("reactivated login error = %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := register(t, svc, "carol@example.com").Member.ID

	name, bio := "  Carol ", "Hello"
	m, err := svc.UpdateProfile(ctx, id, models.UpdateProfileRequest{DisplayName: &name, Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if m.DisplayName != "Carol" || m.Bio != "Hello" {
		t.Errorf("profile = %q / %q", m.DisplayName, m.Bio)
	}
	if _, err := svc.UpdateProfile(ctx, "missing", models.UpdateProfileRequest{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing member error = %v, want ErrNotFound", err)
	}
}

func TestSetRoles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := register(t, svc, "admin@example.com").Member.ID
	target := register(t, svc, "dave@example.com").Member.ID

	m, err := svc.SetRoles(ctx, admin, target, []string{"editor", "editor"})
	if err != nil {
		t.Fatalf("SetRoles() error = %v", err)
	}
	if len(m.Roles) != 2 || m.Roles[0] != models.RoleMember || m.Roles[1] != models.RoleEditor {
		t.Errorf("Roles = %v, want [member editor]", m.Roles)
	}

	if _, err := svc.SetRoles(ctx, admin, target, []string{"root"}); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("invalid role error = %v", err)
	}
	if _, err := svc.SetRoles(ctx, admin, admin, []string{"member"}); !errors.Is(err, ErrSelfDemotion) {
		t.Errorf("self demotion error = %v", err)
	}
	if _, err := svc.Deactivate(ctx, admin, admin); !errors.Is(err, ErrSelfDemotion) {
		t.Errorf("self deactivation error = %v", err)
	}
}

func TestSetTier(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := register(t, svc, "erin@example.com").Member.ID

	if _, err := svc.SetTier(ctx, id, "premium"); err != nil {
		t.Fatalf("SetTier() error = %v", err)
	}
	if tier, _ := svc.Tier(ctx, id); tier != "premium" {
		t.Errorf("Tier() = %q, want premium", tier)
	}
	if _, err := svc.SetTier(ctx, id, "gold"); !errors.Is(err, ErrUnknownTier) {
		t.Errorf("unknown tier error = %v", err)
	}
}

func TestList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	register(t, svc, "frank@example.com")
	id := register(t, svc, "grace@example.com").Member.ID
	if _, err := svc.SetTier(ctx, id, "premium"); err != nil {
		t.Fatal(err)
	}

	all, total, err := svc.List(ctx, ListFilter{}, store.ListOptions{})
	if err != nil || total != 2 || len(all) != 2 {
		t.Fatalf("List() = %d items, total %d, err %v", len(all), total, err)
	}

	premium, total, _ := svc.List(ctx, ListFilter{Tier: "premium"}, store.ListOptions{})
	if total != 1 || premium[0].ID != id {
		t.Errorf("tier filter = %d", total)
	}

	byName, total, _ := svc.List(ctx, ListFilter{Query: "FRANK"}, store.ListOptions{})
	if total != 1 || byName[0].Email != "frank@example.com" {
		t.Errorf("query filter = %d", total)
	}

	if n, _ := svc.Count(ctx); n != 2 {
		t.Errorf("Count() = %d", n)
	}
}

func TestEnsureAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "", ""); err != nil {
		t.Errorf("EnsureAdmin(empty) error = %v", err)
	}

	if err := svc.EnsureAdmin(ctx, "root@example.com", "password123"); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	resp, err := svc.Login(ctx, "root@example.com", "password123")
	if err != nil {
		t.Fatal(err)
	}
	m, _ := svc.Get(ctx, resp.Member.ID)
	if !m.HasRole(models.RoleAdmin) {
		t.Errorf("Roles = %v, want admin", m.Roles)
	}

	// Idempotent.
	if err := svc.EnsureAdmin(ctx, "root@example.com", "password123"); err != nil {
		t.Errorf("second EnsureAdmin() error = %v", err)
	}
	if n, _ := svc.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}

	// Promotes an existing member.
	id := register(t, svc, "promote@example.com").Member.ID
	if err := svc.EnsureAdmin(ctx, "promote@example.com", "password123"); err != nil {
		t.Fatal(err)
	}
	promoted, _ := svc.Get(ctx, id)
	if !promoted.HasRole(models.RoleAdmin) {
		t.Error("existing member should be promoted")
	}
}
