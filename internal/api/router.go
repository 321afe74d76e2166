// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/geoclover/internal/middleware"
)

// Router builds the chi route tree.
type Router struct {
	handler    *Handler
	middleware *ChiMiddleware
}

// NewRouter creates a Router. A nil config takes the middleware defaults.
func NewRouter(handler *Handler, config *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:    handler,
		middleware: NewChiMiddleware(config),
	}
}

// SetupChi returns the configured handler.
//
// Global middleware order: request ID, real IP, panic recovery, CORS,
// Prometheus instrumentation. /api routes are rate limited per client IP;
// the realtime channel and metrics are not.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.Get("/", h.Root)
	r.Get("/ws", h.WebSocket)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())

		r.Post("/pins", h.CreatePin)
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)

		r.Get("/health", h.Health)
		r.Get("/health/live", h.HealthLive)

		if h.cfg.Journal != nil && h.cfg.Journal.JournalEnabled() {
			r.Route("/replication/failures", func(r chi.Router) {
				r.Get("/", h.ListFailures)
				r.Post("/{id}/resubmit", h.ResubmitFailure)
				r.Delete("/{id}", h.DiscardFailure)
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})

	return r
}
