// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the loopback HTTP surface.
type Router struct {
	handler *Handler
	mw      *ChiMiddleware
}

// NewRouter creates a router over the given handler and middleware factory.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	return &Router{
		handler: handler,
		mw:      mw,
	}
}

// Setup configures all routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global stack. CORS is global so OPTIONS preflight is answered
	// before routing.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.mw.CORS())

	// Probes poll every few seconds, so they get their own budget.
	r.Group(func(r chi.Router) {
		r.Use(router.mw.RateLimitCustom(RateLimitHealth))
		r.Get("/healthz", router.handler.Healthz)
		r.Get("/readyz", router.handler.Readyz)
	})

	// Prometheus scrapes run unthrottled.
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/oauth", func(r chi.Router) {
		r.Use(router.mw.RateLimitCustom(RateLimitOAuth))
		r.Get("/login", router.handler.OAuthLogin)
		r.Get("/callback", router.handler.OAuthCallback)
	})

	r.With(router.mw.RateLimitCustom(RateLimitWebSocket)).Get("/ws", router.handler.WebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Get("/status", router.handler.Status)
		r.With(router.mw.RateLimitCustom(RateLimitTrigger)).Post("/sync", router.handler.SyncTrigger)
	})

	return r
}
