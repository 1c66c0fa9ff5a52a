// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/memberhub/internal/analytics"
	"github.com/tomtom215/memberhub/internal/api"
	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/authz"
	"github.com/tomtom215/memberhub/internal/chat"
	"github.com/tomtom215/memberhub/internal/cms"
	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/documents"
	"github.com/tomtom215/memberhub/internal/events"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/members"
	"github.com/tomtom215/memberhub/internal/membership"
	"github.com/tomtom215/memberhub/internal/middleware"
	"github.com/tomtom215/memberhub/internal/scheduler"
	"github.com/tomtom215/memberhub/internal/search"
	"github.com/tomtom215/memberhub/internal/store"
	"github.com/tomtom215/memberhub/internal/supervisor"
	"github.com/tomtom215/memberhub/internal/supervisor/services"
	ws "github.com/tomtom215/memberhub/internal/websocket"
)

// limiterPruneSchedule drops idle per-member chat send limiters.
const limiterPruneSchedule = "@every 10m"

// backend owns everything the API role runs.
type backend struct {
	store     *store.Store
	hub       *ws.Hub
	bus       *analytics.Bus
	consumer  *analytics.Consumer
	enforcer  *authz.Enforcer
	search    *search.Service
	scheduler *scheduler.Scheduler
	router    *api.Router
}

func newBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	s, err := store.Open(store.Config{Path: cfg.Database.Path, InMemory: cfg.Database.InMemory})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logging.Info().Str("path", cfg.Database.Path).Bool("in_memory", cfg.Database.InMemory).Msg("Store opened")

	b := &backend{store: s, hub: ws.NewHub()}
	if err := b.build(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *backend) build(ctx context.Context, cfg *config.Config) error {
	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("jwt manager: %w", err)
	}

	tiers := membership.NewProvider(cfg.Membership)
	memberSvc := members.NewService(members.NewCollection(b.store), jwtManager, tiers, cfg.Security.BcryptCost)
	tiers.WithTierLookup(memberSvc.Tier)

	if err := memberSvc.EnsureAdmin(ctx, cfg.Security.AdminEmail, cfg.Security.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	pages := cms.NewService(cms.NewCollection(b.store), tiers)
	eventSvc := events.NewService(events.NewCollection(b.store), b.hub)
	docs, err := documents.NewService(documents.NewCollection(b.store), cfg.Uploads)
	if err != nil {
		return fmt.Errorf("documents: %w", err)
	}
	chatSvc := chat.NewService(chat.NewMessageCollection(b.store), chat.NewBlockCollection(b.store), memberSvc, b.hub, cfg.Chat)

	b.search = search.NewService(pages, eventSvc, docs, tiers, cfg.Search)
	pages.OnChange(b.search.Invalidate)
	eventSvc.OnChange(b.search.Invalidate)
	docs.OnChange(b.search.Invalidate)

	analyticsEvents := analytics.NewCollection(b.store)
	b.bus = analytics.NewBus(cfg.Analytics)
	if cfg.Analytics.Enabled {
		if b.consumer, err = analytics.NewConsumer(b.bus, analyticsEvents); err != nil {
			return fmt.Errorf("analytics consumer: %w", err)
		}
	}

	b.enforcer, err = authz.NewEnforcer(cfg.Security.Casbin)
	if err != nil {
		return fmt.Errorf("casbin enforcer: %w", err)
	}

	b.scheduler = scheduler.New(cfg.Server.Timeout)
	if err := b.scheduler.Add("publish-scheduled-events", cfg.Events.PublishSchedule, func(ctx context.Context) error {
		_, err := eventSvc.PublishDue(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("schedule event publishing: %w", err)
	}
	if err := b.scheduler.Add("prune-chat-limiters", limiterPruneSchedule, func(context.Context) error {
		if n := chatSvc.PruneLimiters(); n > 0 {
			logging.Debug().Int("pruned", n).Msg("Pruned idle chat limiters")
		}
		return nil
	}); err != nil {
		return fmt.Errorf("schedule limiter pruning: %w", err)
	}

	handler := api.NewHandler(api.Dependencies{
		Config:    cfg,
		Store:     b.store,
		Members:   memberSvc,
		Pages:     pages,
		Chat:      chatSvc,
		Events:    eventSvc,
		Documents: docs,
		Search:    b.search,
		Tiers:     tiers,
		Tracker:   analytics.NewTracker(b.bus, cfg.Analytics.Enabled),
		Analytics: analyticsEvents,
		Hub:       b.hub,
		PerfMon:   middleware.NewPerformanceMonitor(1000, 0),
	})
	b.router = api.NewRouter(handler,
		api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security)),
		auth.NewMiddleware(jwtManager, cfg.Security.APIKeys).WithActiveCheck(memberSvc.CheckActive),
		authz.NewMiddleware(b.enforcer),
		tiers,
	)
	return nil
}

// supervise registers the backend's long-running services.
func (b *backend) supervise(tree *supervisor.SupervisorTree) {
	tree.AddMessagingService(services.NewWebSocketHubService(b.hub))
	tree.AddJobService(b.scheduler)
	if b.consumer != nil {
		tree.AddJobService(b.consumer)
	}
}

// Close releases resources after the supervisor tree has stopped.
func (b *backend) Close() {
	if b.search != nil {
		b.search.Close()
	}
	if b.enforcer != nil {
		b.enforcer.Close()
	}
	if b.bus != nil {
		if err := b.bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing analytics bus")
		}
	}
	if err := b.store.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing store")
	}
}
