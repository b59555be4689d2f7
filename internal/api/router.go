// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

// Package api exposes the HTTP surface: intelligence ingestion for
// producers, read-only introspection for dashboards, the WebSocket
// subscription endpoint, and Prometheus metrics.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/varko/chainwatch/internal/logging"
)

// NewRouter builds the route table over the handler.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", h.WebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Get("/cache/stats", h.CacheStats)
		r.Get("/analysis/characters", h.CharacterAnalysisBatch)

		r.Route("/intel", func(r chi.Router) {
			r.Post("/threat", h.IngestThreat)
			r.Post("/activity", h.IngestActivity)
			r.Post("/chain", h.IngestChain)
			r.Post("/killmail", h.IngestKillmail)
			r.Post("/vetting", h.IngestVetting)
		})
	})

	return r
}

// requestLogger logs one line per request at debug level. The metrics
// endpoint is scraped constantly and excluded to keep logs readable.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
