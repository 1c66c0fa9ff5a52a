// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

// Package members implements member onboarding, login and administration.
package members

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/membership"
	"github.com/tomtom215/memberhub/internal/models"
	"github.com/tomtom215/memberhub/internal/store"
)

var (
	// ErrNotFound is returned for unknown member IDs.
	ErrNotFound = errors.New("member not found")

	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInactive is returned when a deactivated member tries to log in.
	ErrInactive = errors.New("member is deactivated")

	// ErrInvalidRole is returned for role names outside models.ValidRoles.
	ErrInvalidRole = errors.New("invalid role")

	// ErrUnknownTier is returned for tiers missing from configuration.
	ErrUnknownTier = errors.New("unknown membership tier")

	// ErrSelfDemotion is returned when an admin removes their own admin role
	// or deactivates themselves.
	ErrSelfDemotion = errors.New("admins cannot remove their own admin access")
)

const collectionName = "members"

// Collection is the members document collection.
type Collection = store.Collection[models.Member, *models.Member]

// NewCollection declares the members collection with its unique email index.
func NewCollection(s *store.Store) *Collection {
	return store.NewCollection[models.Member](s, collectionName,
		store.Index[models.Member]{
			Name:   "email",
			Unique: true,
			Key:    func(m *models.Member) string { return m.Email },
		},
		store.Index[models.Member]{
			Name: "tier",
			Key:  func(m *models.Member) string { return m.Tier },
		},
	)
}

// Service manages member accounts.
type Service struct {
	members    *Collection
	jwt        *auth.JWTManager
	tiers      *membership.Provider
	bcryptCost int
	now        func() time.Time

	// dummyHash keeps login timing similar for unknown emails.
	dummyHash string
}

// NewService creates the member service.
func NewService(members *Collection, jwt *auth.JWTManager, tiers *membership.Provider, bcryptCost int) *Service {
	dummy, err := auth.HashPassword("memberhub-timing-equaliser", bcryptCost)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to prepare dummy password hash")
	}
	return &Service{
		members:    members,
		jwt:        jwt,
		tiers:      tiers,
		bcryptCost: bcryptCost,
		now:        time.Now,
		dummyHash:  dummy,
	}
}

// Register creates a member with the default role and tier and logs them in.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	m := &models.Member{
		Base:         models.NewBase(s.now()),
		Email:        models.NormalizeEmail(req.Email),
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Roles:        []string{models.RoleMember},
		Tier:         s.tiers.DefaultTier(),
		Active:       true,
	}
	if err := s.members.Insert(ctx, m); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert member: %w", err)
	}

	logging.Ctx(ctx).Info().Str("member_id", m.ID).Msg("Member registered")
	return s.issue(ctx, m)
}

// Login verifies credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	m, err := s.members.FindOne(ctx, "email", models.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		_ = auth.CheckPassword(s.dummyHash, password)
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}

	if err := auth.CheckPassword(m.PasswordHash, password); err != nil {
		logging.Ctx(ctx).Info().Str("member_id", m.ID).Msg("Login failed: bad password")
		return nil, auth.ErrInvalidCredentials
	}
	if !m.Active {
		return nil, ErrInactive
	}

	now := s.now().UTC()
	m, err = s.members.Modify(ctx, m.ID, func(doc *models.Member) error {
		doc.LastLoginAt = &now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	return s.issue(ctx, m)
}

func (s *Service) issue(_ context.Context, m *models.Member) (*models.LoginResponse, error) {
	token, expiresAt, err := s.jwt.GenerateToken(auth.SubjectFromMember(m))
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, ExpiresAt: expiresAt, Member: m.View()}, nil
}

// Get returns a member by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Member, error) {
	m, err := s.members.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return m, err
}

// Exists reports whether an active member with id exists.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	m, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.Active, nil
}

// CheckActive returns an error unless id is an active member. It backs the
// auth middleware's per-request check.
func (s *Service) CheckActive(ctx context.Context, id string) error {
	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !m.Active {
		return ErrInactive
	}
	return nil
}

// Tier returns the member's current tier.
func (s *Service) Tier(ctx context.Context, id string) (string, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return m.Tier, nil
}

// UpdateProfile applies the non-nil fields of req.
func (s *Service) UpdateProfile(ctx context.Context, id string, req models.UpdateProfileRequest) (*models.Member, error) {
	return s.modify(ctx, id, func(m *models.Member) error {
		if req.DisplayName != nil {
			m.DisplayName = strings.TrimSpace(*req.DisplayName)
		}
		if req.Bio != nil {
			m.Bio = *req.Bio
		}
		if req.AvatarURL != nil {
			m.AvatarURL = *req.AvatarURL
		}
		return nil
	})
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Query  string
	Role   string
	Tier   string
	Active *bool
}

func (f ListFilter) match(m *models.Member) bool {
	if f.Role != "" && !m.HasRole(f.Role) {
		return false
	}
	if f.Tier != "" && m.Tier != f.Tier {
		return false
	}
	if f.Active != nil && m.Active != *f.Active {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(m.Email, q) || strings.Contains(strings.ToLower(m.DisplayName), q)
	}
	return true
}

// List returns members newest first.
func (s *Service) List(ctx context.Context, filter ListFilter, opts store.ListOptions) ([]*models.Member, int, error) {
	return s.members.List(ctx, filter.match, opts)
}

// Count returns the number of members.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.members.Count(ctx, nil)
}

// SetRoles replaces a member's roles. actorID may not drop their own admin role.
func (s *Service) SetRoles(ctx context.Context, actorID, id string, roles []string) (*models.Member, error) {
	clean := make([]string, 0, len(roles))
	seen := make(map[string]bool, len(roles))
	for _, r := range roles {
		if !models.IsValidRole(r) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, r)
		}
		if !seen[r] {
			seen[r] = true
			clean = append(clean, r)
		}
	}
	if !seen[models.RoleMember] {
		clean = append([]string{models.RoleMember}, clean...)
	}
	if actorID == id && !seen[models.RoleAdmin] {
		return nil, ErrSelfDemotion
	}

	m, err := s.modify(ctx, id, func(m *models.Member) error {
		m.Roles = clean
		return nil
	})
	if err == nil {
		logging.Ctx(ctx).Info().
			Str("actor_id", actorID).
			Str("target_id", id).
			Strs("roles", clean).
			Msg("Member roles changed")
	}
	return m, err
}

// SetTier changes a member's membership tier.
func (s *Service) SetTier(ctx context.Context, id, tier string) (*models.Member, error) {
	if !s.tiers.HasTier(tier) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return s.modify(ctx, id, func(m *models.Member) error {
		m.Tier = tier
		return nil
	})
}

// Deactivate blocks a member from logging in and from using existing tokens.
func (s *Service) Deactivate(ctx context.Context, actorID, id string) (*models.Member, error) {
	if actorID == id {
		return nil, ErrSelfDemotion
	}
	return s.setActive(ctx, id, false)
}

// Reactivate restores a deactivated member.
func (s *Service) Reactivate(ctx context.Context, id string) (*models.Member, error) {
	return s.setActive(ctx, id, true)
}

func (s *Service) setActive(ctx context.Context, id string, active bool) (*models.Member, error) {
	return s.modify(ctx, id, func(m *models.Member) error {
		m.Active = active
		return nil
	})
}

// EnsureAdmin creates the bootstrap admin account, or grants admin to an
// existing account with that email. It does nothing when email is empty.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil
	}

	existing, err := s.members.FindOne(ctx, "email", email)
	switch {
	case err == nil:
		if existing.HasRole(models.RoleAdmin) && existing.Active {
			return nil
		}
		_, err = s.modify(ctx, existing.ID, func(m *models.Member) error {
			if !m.HasRole(models.RoleAdmin) {
				m.Roles = append(m.Roles, models.RoleAdmin)
			}
			m.Active = true
			return nil
		})
		if err == nil {
			logging.Info().Str("member_id", existing.ID).Msg("Granted admin role to bootstrap account")
		}
		return err
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("find admin: %w", err)
	}

	resp, err := s.Register(ctx, models.RegisterRequest{Email: email, Password: password, DisplayName: "Administrator"})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	_, err = s.modify(ctx, resp.Member.ID, func(m *models.Member) error {
		m.Roles = []string{models.RoleMember, models.RoleEditor, models.RoleAdmin}
		return nil
	})
	if err == nil {
		logging.Info().Str("member_id", resp.Member.ID).Msg("Bootstrap admin account created")
	}
	return err
}

func (s *Service) modify(ctx context.Context, id string, fn func(*models.Member) error) (*models.Member, error) {
	now := s.now()
	m, err := s.members.Modify(ctx, id, func(m *models.Member) error {
		if err := fn(m); err != nil {
			return err
		}
		m.Touch(now)
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return m, err
}
