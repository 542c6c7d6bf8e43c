// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

package ais

import (
	"context"
	"fmt"
	"sort"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tidewatch/tidewatch/internal/cache"
	"github.com/tidewatch/tidewatch/internal/logging"
)

// Options configures the Service.
type Options struct {
	// URL is the upstream feed endpoint (wss://...).
	URL string

	// APIKey is the static feed credential. May be empty at startup;
	// every fetch then fails fast with ErrMissingAPIKey.
	APIKey string

	// DefaultTimeout bounds a collection burst when the caller passes
	// none.
	DefaultTimeout time.Duration

	// DefaultMaxRecords bounds a zone burst when the caller passes
	// none.
	DefaultMaxRecords int

	// DialsPerMinute limits upstream session opens, protecting the
	// feed from cache-miss stampedes. Zero disables the limiter.
	DialsPerMinute int

	// Dialer overrides the production websocket dialer; tests inject
	// scripted connections here.
	Dialer Dialer
}

const (
	defaultTimeout    = 5 * time.Second
	defaultMaxRecords = 500
	defaultTrackHours = 24

	// breakerThreshold consecutive transport failures open the breaker.
	breakerThreshold uint32 = 3
	breakerCooldown         = 30 * time.Second
)

// Service exposes the fetch operations consumed by the port-call and
// map layers. Each operation probes the injected cache first and opens
// a bounded stream session on a miss. The service adds a circuit
// breaker and a dial rate limit around the upstream feed; retry and
// backoff remain the caller's responsibility.
type Service struct {
	opts    Options
	cache   *cache.Cache
	dialer  Dialer
	breaker *gobreaker.CircuitBreaker[[]PositionRecord]
	limiter *rate.Limiter
}

// FetchOptions tunes one fetch operation. Zero values fall back to the
// service defaults.
type FetchOptions struct {
	// Timeout is the collection window ceiling.
	Timeout time.Duration

	// MaxRecords settles the burst early once this many distinct
	// records were collected.
	MaxRecords int
}

// TrackOptions tunes a track fetch.
type TrackOptions struct {
	FetchOptions

	// Hours is the nominal track coverage used in the cache key.
	// Default 24.
	Hours int
}

// NewService creates the fetch service around an injected cache.
func NewService(opts Options, c *cache.Cache) *Service {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = defaultTimeout
	}
	if opts.DefaultMaxRecords <= 0 {
		opts.DefaultMaxRecords = defaultMaxRecords
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = NewDialer()
	}

	var limiter *rate.Limiter
	if opts.DialsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.DialsPerMinute)), opts.DialsPerMinute)
	}

	breaker := gobreaker.NewCircuitBreaker[[]PositionRecord](gobreaker.Settings{
		Name:    "ais-feed",
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("feed circuit breaker state change")
		},
	})

	return &Service{
		opts:    opts,
		cache:   c,
		dialer:  dialer,
		breaker: breaker,
		limiter: limiter,
	}
}

// FetchVesselsInZone collects the vessels currently reporting inside
// the bounding box. Results are deduplicated per vessel and cached
// under the zone tier.
func (s *Service) FetchVesselsInZone(ctx context.Context, b Bounds, opts FetchOptions) ([]PositionRecord, error) {
	key := cache.ZoneKey(b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
	if cached, ok := s.cache.Get(key); ok {
		if recs, ok := cached.([]PositionRecord); ok {
			return recs, nil
		}
	}

	recs, err := s.collect(ctx, collectRequest{
		Boxes:      []Bounds{b},
		Timeout:    s.timeout(opts),
		MaxRecords: s.maxRecords(opts),
		Sink:       NewAggregator(),
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, recs, cache.TTLZone)
	return recs, nil
}

// FetchLatestPositionByMMSI returns the vessel's most recent position
// report, or nil when the vessel did not report within the window.
func (s *Service) FetchLatestPositionByMMSI(ctx context.Context, mmsi string, opts FetchOptions) (*PositionRecord, error) {
	key := cache.PositionKey(cache.IDTypeMMSI, mmsi)
	if cached, ok := s.cache.Get(key); ok {
		if rec, ok := cached.(PositionRecord); ok {
			return &rec, nil
		}
	}

	recs, err := s.collect(ctx, collectRequest{
		Boxes:      []Bounds{GlobalBounds},
		MMSIFilter: []string{mmsi},
		Timeout:    s.timeout(opts),
		MaxRecords: 1,
		Sink:       NewAggregator(),
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}

	rec := recs[0]
	s.cache.Set(key, rec, cache.TTLPosition)
	return &rec, nil
}

// FetchTrackByMMSI approximates a vessel's recent track with one live
// collection burst: every report received within the window is kept,
// sorted by timestamp ascending. This is not a persisted archive.
func (s *Service) FetchTrackByMMSI(ctx context.Context, mmsi string, opts TrackOptions) ([]PositionRecord, error) {
	hours := opts.Hours
	if hours <= 0 {
		hours = defaultTrackHours
	}

	key := cache.TrackKey(cache.IDTypeMMSI, mmsi, hours)
	if cached, ok := s.cache.Get(key); ok {
		if recs, ok := cached.([]PositionRecord); ok {
			return recs, nil
		}
	}

	recs, err := s.collect(ctx, collectRequest{
		Boxes:      []Bounds{GlobalBounds},
		MMSIFilter: []string{mmsi},
		Timeout:    s.timeout(opts.FetchOptions),
		MaxRecords: s.maxRecords(opts.FetchOptions),
		Sink:       NewRecorder(),
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp < recs[j].Timestamp
	})

	s.cache.Set(key, recs, cache.TTLTrack)
	return recs, nil
}

// FetchFleetStatus returns the latest position for each vessel in the
// fleet that reported within the window. The fleet tier's short TTL
// reflects its moderate volatility.
func (s *Service) FetchFleetStatus(ctx context.Context, mmsis []string, opts FetchOptions) ([]PositionRecord, error) {
	if len(mmsis) == 0 {
		return nil, nil
	}

	key := cache.FleetKey(mmsis)
	if cached, ok := s.cache.Get(key); ok {
		if recs, ok := cached.([]PositionRecord); ok {
			return recs, nil
		}
	}

	maxRecords := opts.MaxRecords
	if maxRecords <= 0 {
		maxRecords = len(mmsis)
	}

	recs, err := s.collect(ctx, collectRequest{
		Boxes:      []Bounds{GlobalBounds},
		MMSIFilter: mmsis,
		Timeout:    s.timeout(opts),
		MaxRecords: maxRecords,
		Sink:       NewAggregator(),
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, recs, cache.TTLFleet)
	return recs, nil
}

// Configured reports whether a feed credential is present.
func (s *Service) Configured() bool {
	return s.opts.APIKey != ""
}

// collect runs one session behind the credential check, the dial rate
// limit, and the circuit breaker.
func (s *Service) collect(ctx context.Context, req collectRequest) ([]PositionRecord, error) {
	if s.opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("feed dial rate limit: %w", err)
		}
	}

	return s.breaker.Execute(func() ([]PositionRecord, error) {
		return collect(ctx, s.dialer, s.opts.URL, s.opts.APIKey, req)
	})
}

func (s *Service) timeout(opts FetchOptions) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	return s.opts.DefaultTimeout
}

func (s *Service) maxRecords(opts FetchOptions) int {
	if opts.MaxRecords > 0 {
		return opts.MaxRecords
	}
	return s.opts.DefaultMaxRecords
}
