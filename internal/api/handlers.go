// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

// Package api provides the HTTP surface over the AIS fetch operations
// and the position cache. This is the thin caller layer the excluded
// port-call CRUD application talks to; it holds no domain state of its
// own.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tidewatch/tidewatch/internal/ais"
	"github.com/tidewatch/tidewatch/internal/cache"
	"github.com/tidewatch/tidewatch/internal/ports"
	"github.com/tidewatch/tidewatch/internal/validation"
)

// Handler serves the API endpoints.
type Handler struct {
	svc   *ais.Service
	cache *cache.Cache
	ports ports.Directory
}

// NewHandler wires the handler to its collaborators.
func NewHandler(svc *ais.Service, c *cache.Cache, dir ports.Directory) *Handler {
	return &Handler{svc: svc, cache: c, ports: dir}
}

// zoneQuery binds and validates the bounding-box query parameters.
type zoneQuery struct {
	MinLat float64 `validate:"latitude"`
	MaxLat float64 `validate:"latitude,gtefield=MinLat"`
	MinLon float64 `validate:"longitude"`
	MaxLon float64 `validate:"longitude,gtefield=MinLon"`
}

// VesselsInZone handles GET /api/v1/vessels/zone.
//
// Query: minLat, maxLat, minLon, maxLon (required), timeout (seconds),
// max (record ceiling).
func (h *Handler) VesselsInZone(w http.ResponseWriter, r *http.Request) {
	q := zoneQuery{}
	var err error
	if q.MinLat, err = queryFloat(r, "minLat"); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
		return
	}
	if q.MaxLat, err = queryFloat(r, "maxLat"); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
		return
	}
	if q.MinLon, err = queryFloat(r, "minLon"); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
		return
	}
	if q.MaxLon, err = queryFloat(r, "maxLon"); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
		return
	}

	if verr := validation.ValidateStruct(&q); verr != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, verr.Error(), nil)
		return
	}

	bounds := ais.Bounds{MinLat: q.MinLat, MaxLat: q.MaxLat, MinLon: q.MinLon, MaxLon: q.MaxLon}
	recs, err := h.svc.FetchVesselsInZone(r.Context(), bounds, fetchOptions(r))
	if err != nil {
		respondFetchError(w, err)
		return
	}

	respondData(w, recs)
}

// LatestPosition handles GET /api/v1/vessels/{mmsi}/position.
func (h *Handler) LatestPosition(w http.ResponseWriter, r *http.Request) {
	mmsi, ok := mmsiParam(w, r)
	if !ok {
		return
	}

	rec, err := h.svc.FetchLatestPositionByMMSI(r.Context(), mmsi, fetchOptions(r))
	if err != nil {
		respondFetchError(w, err)
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, CodeNotFound, "vessel did not report within the collection window", nil)
		return
	}

	respondData(w, rec)
}

// Track handles GET /api/v1/vessels/{mmsi}/track.
//
// Query: hours (nominal coverage, default 24), timeout, max.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	mmsi, ok := mmsiParam(w, r)
	if !ok {
		return
	}

	opts := ais.TrackOptions{FetchOptions: fetchOptions(r)}
	if raw := r.URL.Query().Get("hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			respondError(w, http.StatusBadRequest, CodeInvalidRequest, "hours must be a positive integer", nil)
			return
		}
		opts.Hours = hours
	}

	recs, err := h.svc.FetchTrackByMMSI(r.Context(), mmsi, opts)
	if err != nil {
		respondFetchError(w, err)
		return
	}

	respondData(w, recs)
}

// FleetStatus handles GET /api/v1/fleet/status?mmsi=a,b,c.
func (h *Handler) FleetStatus(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("mmsi")
	if raw == "" {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "mmsi list is required", nil)
		return
	}

	var mmsis []string
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !isNumeric(id) {
			respondError(w, http.StatusBadRequest, CodeInvalidRequest, "mmsi values must be numeric", nil)
			return
		}
		mmsis = append(mmsis, id)
	}
	if len(mmsis) == 0 {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "mmsi list is required", nil)
		return
	}

	recs, err := h.svc.FetchFleetStatus(r.Context(), mmsis, fetchOptions(r))
	if err != nil {
		respondFetchError(w, err)
		return
	}

	respondData(w, recs)
}

// PortByLocode handles GET /api/v1/ports/{locode}.
func (h *Handler) PortByLocode(w http.ResponseWriter, r *http.Request) {
	locode := chi.URLParam(r, "locode")
	p, ok := h.ports.Lookup(locode)
	if !ok {
		respondError(w, http.StatusNotFound, CodeNotFound, "unknown port locode", nil)
		return
	}
	respondData(w, p)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	respondData(w, h.cache.GetStats())
}

// HealthLive handles GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready. Readiness reflects
// configuration only: the feed connection is per-fetch, so there is no
// persistent upstream session to probe.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	respondData(w, map[string]interface{}{
		"status":         "ready",
		"feedConfigured": h.svc.Configured(),
	})
}

// mmsiParam extracts and validates the {mmsi} URL parameter.
func mmsiParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	mmsi := chi.URLParam(r, "mmsi")
	if mmsi == "" || !isNumeric(mmsi) {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "mmsi must be numeric", nil)
		return "", false
	}
	return mmsi, true
}

// fetchOptions reads the optional timeout and max query parameters.
// Invalid values fall back to service defaults rather than failing the
// request.
func fetchOptions(r *http.Request) ais.FetchOptions {
	var opts ais.FetchOptions
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
			opts.Timeout = time.Duration(secs * float64(time.Second))
		}
	}
	if raw := r.URL.Query().Get("max"); raw != "" {
		if max, err := strconv.Atoi(raw); err == nil && max > 0 {
			opts.MaxRecords = max
		}
	}
	return opts
}

// respondFetchError maps the service error taxonomy to HTTP statuses:
// a missing credential is a server misconfiguration, an open breaker is
// upstream pressure, everything else is a transport failure.
func respondFetchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ais.ErrMissingAPIKey):
		respondError(w, http.StatusServiceUnavailable, CodeConfigError, "position feed credential is not configured", err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, http.StatusServiceUnavailable, CodeUpstreamBusy, "position feed is temporarily unavailable", err)
	default:
		respondError(w, http.StatusBadGateway, CodeTransportError, "position feed connection failed", err)
	}
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.New(name + " is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New(name + " must be numeric")
	}
	return v, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
