// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the Chi router over the handler set.
//
// Health endpoints bypass the rate limit so monitoring probes cannot
// starve; everything under /api/v1 shares the configured IP-keyed
// limiter.
func NewRouter(h *Handler, mw MiddlewareConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORS(mw.CORSAllowedOrigins))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(mw.RateLimitRequests, mw.RateLimitWindow))

		r.With(Instrument("vessels_zone")).Get("/vessels/zone", h.VesselsInZone)
		r.With(Instrument("vessel_position")).Get("/vessels/{mmsi}/position", h.LatestPosition)
		r.With(Instrument("vessel_track")).Get("/vessels/{mmsi}/track", h.Track)
		r.With(Instrument("fleet_status")).Get("/fleet/status", h.FleetStatus)
		r.With(Instrument("port_lookup")).Get("/ports/{locode}", h.PortByLocode)
		r.Get("/cache/stats", h.CacheStats)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
