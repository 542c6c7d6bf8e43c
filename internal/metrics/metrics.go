// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

// Package metrics provides Prometheus instrumentation for the AIS
// ingestion pipeline, the position cache, and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed metrics

	FeedConnectionAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ais_feed_connection_attempts_total",
			Help: "Total number of upstream feed connection attempts",
		},
	)

	FeedConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ais_feed_connection_errors_total",
			Help: "Total number of failed upstream feed connections",
		},
	)

	FeedFramesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ais_feed_frames_received_total",
			Help: "Total number of inbound frames read from the feed",
		},
	)

	FeedParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ais_feed_parse_errors_total",
			Help: "Total number of inbound frames that were not well-formed",
		},
	)

	RecordsCollected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ais_records_collected_total",
			Help: "Total number of normalized position records collected",
		},
	)

	// SessionsSettled counts session settlements by trigger:
	// max_count, timeout, error, close, canceled.
	SessionsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ais_sessions_settled_total",
			Help: "Total number of stream sessions settled, by trigger",
		},
		[]string{"reason"},
	)

	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ais_session_duration_seconds",
			Help:    "Duration of stream sessions from open to settlement",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// Cache metrics

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "position_cache_hits_total",
			Help: "Total number of position cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "position_cache_misses_total",
			Help: "Total number of position cache misses",
		},
	)

	CacheKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "position_cache_entries",
			Help: "Current number of entries in the position cache",
		},
	)

	// API metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(endpoint, method string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}
