// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

// Package cms manages content pages.
//
// Public reads only see published pages. For the built-in slugs (home,
// about, membership, contact) placeholder content is returned until an
// editor publishes a real page. Premium pages require the premium_content
// feature.
package cms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/models"
	"github.com/tomtom215/memberhub/internal/store"
)

var (
	// ErrNotFound is returned for unknown slugs and IDs.
	ErrNotFound = errors.New("page not found")

	// ErrSlugTaken is returned when another page already uses the slug.
	ErrSlugTaken = errors.New("slug already in use")

	// ErrPremium is returned when a premium page is requested without the
	// premium_content feature.
	ErrPremium = errors.New("premium content requires a higher membership tier")
)

// FeatureChecker decides feature access. membership.Provider implements it.
type FeatureChecker interface {
	Allowed(ctx context.Context, subject *auth.Subject, feature string) bool
}

// Collection is the pages document collection.
type Collection = store.Collection[models.Page, *models.Page]

// NewCollection declares the pages collection with a unique slug index.
func NewCollection(s *store.Store) *Collection {
	return store.NewCollection[models.Page](s, "pages",
		store.Index[models.Page]{
			Name:   "slug",
			Unique: true,
			Key:    func(p *models.Page) string { return p.Slug },
		},
		store.Index[models.Page]{
			Name: "status",
			Key:  func(p *models.Page) string { return p.Status },
		},
	)
}

// Service manages pages.
type Service struct {
	pages    *Collection
	features FeatureChecker
	now      func() time.Time
	onChange []func()
}

// NewService creates the CMS service.
func NewService(pages *Collection, features FeatureChecker) *Service {
	return &Service{pages: pages, features: features, now: time.Now}
}

// OnChange registers fn to run after every write.
func (s *Service) OnChange(fn func()) {
	s.onChange = append(s.onChange, fn)
}

func (s *Service) changed() {
	for _, fn := range s.onChange {
		fn()
	}
}

// GetPage returns the published page for slug as seen by subject (nil for
// anonymous callers).
func (s *Service) GetPage(ctx context.Context, slug string, subject *auth.Subject) (*models.Page, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	p, err := s.pages.FindOne(ctx, "slug", slug)
	switch {
	case errors.Is(err, store.ErrNotFound):
		p = nil
	case err != nil:
		return nil, fmt.Errorf("find page: %w", err)
	}

	if p == nil || !p.IsPublished() {
		if ph, ok := placeholder(slug); ok {
			return ph, nil
		}
		return nil, ErrNotFound
	}

	if p.Premium && !s.features.Allowed(ctx, subject, config.FeaturePremiumContent) {
		return nil, ErrPremium
	}
	return p, nil
}

// Get returns any page by ID, including drafts.
func (s *Service) Get(ctx context.Context, id string) (*models.Page, error) {
	p, err := s.pages.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

// ListPublished returns published pages newest first.
func (s *Service) ListPublished(ctx context.Context, opts store.ListOptions) ([]*models.Page, int, error) {
	return s.pages.List(ctx, func(p *models.Page) bool { return p.IsPublished() }, opts)
}

// List returns pages of any status; status "" matches all.
func (s *Service) List(ctx context.Context, status string, opts store.ListOptions) ([]*models.Page, int, error) {
	return s.pages.List(ctx, func(p *models.Page) bool {
		return status == "" || p.Status == status
	}, opts)
}

// Create stores a new draft page.
func (s *Service) Create(ctx context.Context, authorID string, req models.PageRequest) (*models.Page, error) {
	p := &models.Page{
		Base:     models.NewBase(s.now()),
		Slug:     req.Slug,
		Title:    req.Title,
		Summary:  req.Summary,
		Body:     req.Body,
		Premium:  req.Premium,
		Status:   models.PageStatusDraft,
		AuthorID: authorID,
	}
	if err := s.pages.Insert(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("insert page: %w", err)
	}
	logging.Ctx(ctx).Info().Str("page_id", p.ID).Str("slug", p.Slug).Msg("Page created")
	s.changed()
	return p, nil
}

// Update replaces a page's content. Status is unchanged.
func (s *Service) Update(ctx context.Context, id string, req models.PageRequest) (*models.Page, error) {
	return s.modify(ctx, id, func(p *models.Page) {
		p.Slug = req.Slug
		p.Title = req.Title
		p.Summary = req.Summary
		p.Body = req.Body
		p.Premium = req.Premium
	})
}

// Publish makes a page public.
func (s *Service) Publish(ctx context.Context, id string) (*models.Page, error) {
	now := s.now().UTC()
	return s.modify(ctx, id, func(p *models.Page) {
		p.Status = models.PageStatusPublished
		if p.PublishedAt == nil {
			p.PublishedAt = &now
		}
	})
}

// Unpublish returns a page to draft.
func (s *Service) Unpublish(ctx context.Context, id string) (*models.Page, error) {
	return s.modify(ctx, id, func(p *models.Page) {
		p.Status = models.PageStatusDraft
	})
}

// Delete removes a page.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.pages.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	logging.Ctx(ctx).Info().Str("page_id", id).Msg("Page deleted")
	s.changed()
	return nil
}

// Count returns the number of stored pages.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.pages.Count(ctx, nil)
}

func (s *Service) modify(ctx context.Context, id string, fn func(*models.Page)) (*models.Page, error) {
	now := s.now()
	p, err := s.pages.Modify(ctx, id, func(p *models.Page) error {
		fn(p)
		p.Touch(now)
		return nil
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return nil, ErrSlugTaken
	case err != nil:
		return nil, err
	}
	s.changed()
	return p, nil
}
