// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

// Package events manages member events and their publishing lifecycle.
//
//	draft ──Publish──▶ published
//	  │                   ▲
//	  └─Schedule─▶ scheduled ─(sweep when publish_at ≤ now)─┘
//
// Any state except cancelled can be cancelled. Publishing broadcasts an
// event_published websocket message.
package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/metrics"
	"github.com/tomtom215/memberhub/internal/models"
	"github.com/tomtom215/memberhub/internal/store"
	"github.com/tomtom215/memberhub/internal/websocket"
)

var (
	// ErrNotFound is returned for unknown or hidden events.
	ErrNotFound = errors.New("event not found")

	// ErrInvalidTransition is returned when the event's status does not allow
	// the requested change.
	ErrInvalidTransition = errors.New("invalid event status transition")

	// ErrInvalidTimes is returned when an event ends before it starts.
	ErrInvalidTimes = errors.New("event must end after it starts")

	errAlreadyPublished = errors.New("event already published")
)

// Broadcaster announces published events. websocket.Hub implements it.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// Collection is the events document collection.
type Collection = store.Collection[models.Event, *models.Event]

// NewCollection declares the events collection indexed by status.
func NewCollection(s *store.Store) *Collection {
	return store.NewCollection[models.Event](s, "events",
		store.Index[models.Event]{
			Name: "status",
			Key:  func(e *models.Event) string { return e.Status },
		},
	)
}

// Service manages events.
type Service struct {
	events      *Collection
	broadcaster Broadcaster
	now         func() time.Time
	onChange    []func()
}

// NewService creates the events service. broadcaster may be nil.
func NewService(events *Collection, broadcaster Broadcaster) *Service {
	return &Service{events: events, broadcaster: broadcaster, now: time.Now}
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

// Create stores a new draft event.
func (s *Service) Create(ctx context.Context, createdBy string, req models.EventRequest) (*models.Event, error) {
	if !req.EndsAt.After(req.StartsAt) {
		return nil, ErrInvalidTimes
	}
	e := &models.Event{
		Base:        models.NewBase(s.now()),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
		Status:      models.EventStatusDraft,
		CreatedBy:   createdBy,
	}
	if err := s.events.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	logging.Ctx(ctx).Info().Str("event_id", e.ID).Msg("Event created")
	s.changed()
	return e, nil
}

// Update replaces an event's details. Cancelled events are read-only.
func (s *Service) Update(ctx context.Context, id string, req models.EventRequest) (*models.Event, error) {
	if !req.EndsAt.After(req.StartsAt) {
		return nil, ErrInvalidTimes
	}
	return s.modify(ctx, id, func(e *models.Event) error {
		if e.Status == models.EventStatusCancelled {
			return ErrInvalidTransition
		}
		e.Title = req.Title
		e.Description = req.Description
		e.Location = req.Location
		e.StartsAt = req.StartsAt.UTC()
		e.EndsAt = req.EndsAt.UTC()
		return nil
	})
}

// Publish makes an event visible now. Publishing a published event is a no-op.
func (s *Service) Publish(ctx context.Context, id string) (*models.Event, error) {
	return s.publish(ctx, id, "manual")
}

func (s *Service) publish(ctx context.Context, id, trigger string) (*models.Event, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.EventStatusPublished {
		return current, nil
	}

	now := s.now().UTC()
	e, err := s.modify(ctx, id, func(e *models.Event) error {
		switch e.Status {
		case models.EventStatusPublished:
			return errAlreadyPublished
		case models.EventStatusCancelled:
			return ErrInvalidTransition
		}
		e.Status = models.EventStatusPublished
		e.PublishAt = nil
		e.PublishedAt = &now
		return nil
	})
	if errors.Is(err, errAlreadyPublished) {
		// Published concurrently; nothing was written.
		return s.Get(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	metrics.EventsPublished.WithLabelValues(trigger).Inc()
	logging.Ctx(ctx).Info().Str("event_id", e.ID).Str("trigger", trigger).Msg("Event published")
	if s.broadcaster != nil {
		s.broadcaster.BroadcastJSON(websocket.MessageTypeEventPublished, e)
	}
	return e, nil
}

// Schedule marks a draft or scheduled event for publishing at publishAt.
// A time in the past publishes on the next sweep.
func (s *Service) Schedule(ctx context.Context, id string, publishAt time.Time) (*models.Event, error) {
	at := publishAt.UTC()
	return s.modify(ctx, id, func(e *models.Event) error {
		if e.Status != models.EventStatusDraft && e.Status != models.EventStatusScheduled {
			return ErrInvalidTransition
		}
		e.Status = models.EventStatusScheduled
		e.PublishAt = &at
		return nil
	})
}

// Cancel cancels an event in any state.
func (s *Service) Cancel(ctx context.Context, id string) (*models.Event, error) {
	return s.modify(ctx, id, func(e *models.Event) error {
		if e.Status == models.EventStatusCancelled {
			return ErrInvalidTransition
		}
		e.Status = models.EventStatusCancelled
		e.PublishAt = nil
		return nil
	})
}

// Delete removes an event.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.changed()
	return nil
}

// PublishDue publishes every scheduled event whose publish_at has passed.
// It is run by the scheduler and returns how many events went live.
func (s *Service) PublishDue(ctx context.Context) (int, error) {
	scheduled, err := s.events.FindByIndex(ctx, "status", models.EventStatusScheduled)
	if err != nil {
		return 0, fmt.Errorf("load scheduled events: %w", err)
	}

	now := s.now()
	published := 0
	for _, e := range scheduled {
		if !e.IsDue(now) {
			continue
		}
		if _, err := s.publish(ctx, e.ID, "schedule"); err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) {
				continue
			}
			return published, err
		}
		published++
	}
	return published, nil
}

// Get returns any event by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Event, error) {
	e, err := s.events.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return e, err
}

// GetPublished returns a published or cancelled event. Drafts and scheduled
// events are reported as not found.
func (s *Service) GetPublished(ctx context.Context, id string) (*models.Event, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.PublishedAt == nil {
		return nil, ErrNotFound
	}
	return e, nil
}

// List returns events with status ("" for all), newest first.
func (s *Service) List(ctx context.Context, status string, opts store.ListOptions) ([]*models.Event, int, error) {
	return s.events.List(ctx, func(e *models.Event) bool {
		return status == "" || e.Status == status
	}, opts)
}

// Upcoming returns published events that have not ended at now, soonest first.
func (s *Service) Upcoming(ctx context.Context, now time.Time, limit int) ([]*models.Event, error) {
	published, err := s.events.FindByIndex(ctx, "status", models.EventStatusPublished)
	if err != nil {
		return nil, err
	}

	out := published[:0]
	for _, e := range published {
		if e.EndsAt.After(now) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored events.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.events.Count(ctx, nil)
}

func (s *Service) modify(ctx context.Context, id string, fn func(*models.Event) error) (*models.Event, error) {
	now := s.now()
	e, err := s.events.Modify(ctx, id, func(e *models.Event) error {
		if err := fn(e); err != nil {
			return err
		}
		e.Touch(now)
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.changed()
	return e, nil
}
