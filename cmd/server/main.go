// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/memberhub/internal/api"
	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/metrics"
	"github.com/tomtom215/memberhub/internal/middleware"
	"github.com/tomtom215/memberhub/internal/proxy"
	"github.com/tomtom215/memberhub/internal/supervisor"
	"github.com/tomtom215/memberhub/internal/supervisor/services"
	"github.com/tomtom215/memberhub/internal/web"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Role:   cfg.Server.Role,
		Output: os.Stderr,
	})

	logging.Info().
		Str("version", api.Version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Memberhub")
	metrics.AppInfo.WithLabelValues(api.Version, runtime.Version(), cfg.Server.Role).Set(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewComponentSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	root := chi.NewRouter()
	root.Use(middleware.RequestID)
	root.Use(chimiddleware.RealIP)
	root.Use(chimiddleware.Recoverer)

	if cfg.ServesAPI() {
		b, err := newBackend(ctx, cfg)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize backend")
		}
		defer b.Close()

		b.router.Routes(root)
		b.supervise(tree)
		logging.Info().Msg("Backend API mounted at /api/v1")
	} else {
		root.Handle("/metrics", promhttp.Handler())
	}

	if cfg.ServesFrontend() || cfg.ServesAdmin() {
		if err := mountPortals(root, cfg); err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize web portals")
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Role, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Memberhub stopped")
}

// mountPortals adds the server-rendered public site and admin portal along
// with their proxied API routes. Both read the backend through the proxy.
func mountPortals(r chi.Router, cfg *config.Config) error {
	p, err := proxy.New(cfg.Upstream, cfg.Security.CookieSecure)
	if err != nil {
		return fmt.Errorf("create upstream proxy: %w", err)
	}
	renderer, err := web.NewRenderer()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	if cfg.ServesFrontend() {
		p.Mount(r, proxy.FrontendRoutes())
		r.Group(func(r chi.Router) {
			r.Use(middleware.Compression)
			web.NewSite(p, renderer, cfg.Chat).Routes(r)
			r.Handle("/static/*", web.StaticHandler())
		})
		logging.Info().Str("upstream", cfg.Upstream.BaseURL).Msg("Public site mounted")
	}

	if cfg.ServesAdmin() {
		r.Route("/admin", func(r chi.Router) {
			p.Mount(r, proxy.AdminRoutes())
			r.Group(func(r chi.Router) {
				r.Use(middleware.Compression)
				web.NewAdmin(p, renderer).Routes(r)
			})
		})
		if !cfg.ServesFrontend() {
			r.With(middleware.Compression).Handle("/static/*", web.StaticHandler())
		}
		logging.Info().Str("upstream", cfg.Upstream.BaseURL).Msg("Admin portal mounted at /admin")
	}
	return nil
}
