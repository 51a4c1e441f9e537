// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

// Package api provides the FilmInsight HTTP API on a chi router.
//
// Every response uses the models.APIResponse envelope. Routes:
//
//	GET  /api/v1/health
//	GET  /api/v1/recommendations/user/{userID}?k=
//	POST /api/v1/recommendations/feedback
//	GET  /api/v1/enrichment/{movieID}
//	GET  /api/v1/enrichment/refresh
//	POST /api/v1/enrichment/refresh
//	GET  /metrics
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/filminsight/internal/middleware"
)

// NewRouter wires the handler into a chi router. A nil mw uses
// DefaultChiMiddlewareConfig.
func NewRouter(h *Handler, mw *ChiMiddleware) http.Handler {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit())

			r.Get("/recommendations/user/{userID}", h.GetRecommendations)
			r.Post("/recommendations/feedback", h.PostFeedback)

			r.Get("/enrichment/refresh", h.GetRefreshStatus)
			r.Post("/enrichment/refresh", h.PostRefresh)
			r.Get("/enrichment/{movieID}", h.GetEnrichment)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
