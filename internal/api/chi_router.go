// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/authz"
	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/membership"
	"github.com/tomtom215/memberhub/internal/middleware"
)

// Router wires handlers to routes with their middleware.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	auth          *auth.Middleware
	authz         *authz.Middleware
	tiers         *membership.Provider
	perfMon       *middleware.PerformanceMonitor
}

// NewRouter creates the API router.
func NewRouter(handler *Handler, chiMW *ChiMiddleware, authMW *auth.Middleware, authzMW *authz.Middleware, tiers *membership.Provider) *Router {
	perfMon := handler.perfMon
	if perfMon == nil {
		perfMon = middleware.NewPerformanceMonitor(1000, 0)
		handler.perfMon = perfMon
	}
	return &Router{
		handler:       handler,
		chiMiddleware: chiMW,
		auth:          authMW,
		authz:         authzMW,
		tiers:         tiers,
		perfMon:       perfMon,
	}
}

// SetupChi returns a standalone handler serving the API with the global
// middleware stack. cmd/server uses Routes directly when the API shares a
// router with the frontend.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Applied to ALL routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	router.Routes(r)
	return r
}

// Routes registers /api/v1 and /metrics on r.
//
// Routes the frontend proxy calls in api_key mode sit behind RequireAPIKey;
// everything else authenticates with the member's bearer token.
func (router *Router) Routes(r chi.Router) {
	h := router.handler
	can := router.authz.Authorize

	r.Route("/api/v1", func(r chi.Router) {
		// CORS sits on the subrouter so OPTIONS preflights never reach routing.
		r.Use(router.chiMiddleware.CORS())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.perfMon.Middleware)

		// ========================
		// Health Endpoints
		// ========================
		r.Route("/health", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitHealth())
			r.Get("/live", h.HealthLive)
			r.Get("/ready", h.HealthReady)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())

			// ========================
			// Authentication
			// ========================
			r.Route("/auth", func(r chi.Router) {
				r.Use(router.chiMiddleware.RateLimitAuth())
				r.With(router.auth.RequireAPIKey, router.chiMiddleware.RateLimitLogin()).Post("/login", h.Login)
				r.With(router.auth.RequireAPIKey).Post("/register", h.Register)
				r.With(router.auth.RequireAPIKey).Post("/logout", h.Logout)
				r.With(router.auth.Authenticate).Get("/me", h.Me)
			})

			// ========================
			// Members
			// ========================
			r.Route("/members", func(r chi.Router) {
				r.Use(router.auth.Authenticate)
				r.With(can(authz.ObjectProfile, authz.ActionRead)).Get("/me", h.GetProfile)
				r.With(can(authz.ObjectProfile, authz.ActionWrite)).Put("/me", h.UpdateProfile)

				r.Group(func(r chi.Router) {
					r.Use(can(authz.ObjectMembers, authz.ActionManage))
					r.Get("/", h.ListMembers)
					r.Get("/{id}", h.GetMember)
					r.Put("/{id}/roles", h.SetMemberRoles)
					r.Put("/{id}/tier", h.SetMemberTier)
					r.Post("/{id}/deactivate", h.DeactivateMember)
					r.Post("/{id}/reactivate", h.ReactivateMember)
				})
			})

			// ========================
			// Content
			// ========================
			r.Route("/content", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(router.auth.RequireAPIKey, router.auth.Optional)
					r.Get("/pages", h.ListPages)
					r.Get("/pages/{slug}", h.GetPage)
				})

				r.Route("/admin/pages", func(r chi.Router) {
					r.Use(router.auth.Authenticate)
					r.With(can(authz.ObjectPages, authz.ActionWrite)).Get("/", h.AdminListPages)
					r.With(can(authz.ObjectPages, authz.ActionWrite)).Post("/", h.CreatePage)
					r.With(can(authz.ObjectPages, authz.ActionWrite)).Get("/{id}", h.AdminGetPage)
					r.With(can(authz.ObjectPages, authz.ActionWrite)).Put("/{id}", h.UpdatePage)
					r.With(can(authz.ObjectPages, authz.ActionDelete)).Delete("/{id}", h.DeletePage)
					r.With(can(authz.ObjectPages, authz.ActionPublish)).Post("/{id}/publish", h.PublishPage)
					r.With(can(authz.ObjectPages, authz.ActionPublish)).Post("/{id}/unpublish", h.UnpublishPage)
				})
			})

			// ========================
			// Chat
			// ========================
			r.Route("/chat", func(r chi.Router) {
				r.Use(router.auth.Authenticate)
				r.Use(router.tiers.RequireFeature(config.FeatureChat))

				r.Group(func(r chi.Router) {
					r.Use(can(authz.ObjectChat, authz.ActionRead))
					r.Get("/conversations", h.ListConversations)
					r.Get("/conversations/{peer}", h.GetConversation)
					r.Get("/blocks", h.ListBlocks)
					r.Get("/ws", h.ChatWebSocket)
				})

				r.Group(func(r chi.Router) {
					r.Use(can(authz.ObjectChat, authz.ActionWrite))
					r.Post("/conversations/{peer}/read", h.MarkConversationRead)
					r.With(router.chiMiddleware.RateLimitWrite()).Post("/messages", h.SendMessage)
					r.Post("/blocks", h.BlockMember)
					r.Delete("/blocks/{member}", h.UnblockMember)
				})
			})

			// ========================
			// Events
			// ========================
			r.Route("/events", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(router.auth.Authenticate)
					r.Use(router.tiers.RequireFeature(config.FeatureEvents))
					r.Get("/", h.UpcomingEvents)
					r.Get("/{id}", h.GetEvent)
				})

				r.Group(func(r chi.Router) {
					r.Use(router.auth.Authenticate)
					r.With(can(authz.ObjectEvents, authz.ActionWrite)).Get("/all", h.ListAllEvents)
					r.With(can(authz.ObjectEvents, authz.ActionWrite)).Post("/", h.CreateEvent)
					r.With(can(authz.ObjectEvents, authz.ActionWrite)).Put("/{id}", h.UpdateEvent)
					r.With(can(authz.ObjectEvents, authz.ActionDelete)).Delete("/{id}", h.DeleteEvent)
					r.With(can(authz.ObjectEvents, authz.ActionPublish)).Post("/{id}/publish", h.PublishEvent)
					r.With(can(authz.ObjectEvents, authz.ActionPublish)).Post("/{id}/schedule", h.ScheduleEvent)
					r.With(can(authz.ObjectEvents, authz.ActionPublish)).Post("/{id}/cancel", h.CancelEvent)
				})
			})

			// ========================
			// Documents
			// ========================
			r.Route("/documents", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(router.auth.RequireAPIKey, router.auth.Optional)
					r.Get("/", h.ListDocuments)
					r.Get("/{id}", h.GetDocument)
					r.Get("/{id}/download", h.DownloadDocument)
				})

				r.Group(func(r chi.Router) {
					r.Use(router.auth.Authenticate)
					r.Use(router.tiers.RequireFeature(config.FeatureDocuments))
					r.With(can(authz.ObjectDocuments, authz.ActionWrite), router.chiMiddleware.RateLimitWrite()).Post("/", h.UploadDocument)
					r.With(can(authz.ObjectDocuments, authz.ActionWrite)).Put("/{id}", h.UpdateDocument)
					r.With(can(authz.ObjectDocuments, authz.ActionDelete)).Delete("/{id}", h.DeleteDocument)
				})
			})

			// ========================
			// Search, membership and tracking
			// ========================
			r.Group(func(r chi.Router) {
				r.Use(router.auth.RequireAPIKey, router.auth.Optional)
				r.Get("/search", h.Search)
				r.Get("/membership/features", h.MembershipFeatures)
				r.Get("/membership/tiers", h.MembershipTiers)
			})
			r.With(router.auth.RequireAPIKey, router.auth.Optional, router.chiMiddleware.RateLimitTrack()).Post("/track", h.Track)

			// ========================
			// Analytics (admin)
			// ========================
			r.Route("/analytics", func(r chi.Router) {
				r.Use(router.auth.Authenticate)
				r.Use(can(authz.ObjectAnalytics, authz.ActionRead))
				r.Get("/summary", h.AnalyticsSummary)
				r.Get("/performance", h.PerformanceStats)
			})
		})
	})

	r.With(router.chiMiddleware.RateLimitHealth()).Handle("/metrics", promhttp.Handler())
}
