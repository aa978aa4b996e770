// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestMetrics())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/ws", h.WebSocket)
	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(CORS(h.cfg.AllowedOrigins))
		r.Use(RateLimit(h.cfg.RateLimitRequests, h.cfg.RateLimitWindow, h.cfg.RateLimitDisabled))
		r.Use(APISecurityHeaders())
		// Batch pages run to hundreds of KB of JSON.
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.Get("/status", h.Status)
		r.Get("/batches", h.ListBatches)
		r.Get("/batches/latest", h.LatestBatch)
		r.Get("/batches/{seq}", h.GetBatch)
	})

	return r
}
