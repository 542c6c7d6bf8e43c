// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

package ais

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tidewatch/tidewatch/internal/cache"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c := cache.New(time.Hour)
	t.Cleanup(c.Stop)
	return c
}

func newTestService(t *testing.T, apiKey string, dialer Dialer) *Service {
	t.Helper()
	return NewService(Options{
		URL:            "wss://example/feed",
		APIKey:         apiKey,
		DefaultTimeout: 200 * time.Millisecond,
		Dialer:         dialer,
	}, newTestCache(t))
}

func TestFetchWithoutCredentialFailsBeforeConnecting(t *testing.T) {
	dialer := newFakeDialer()
	svc := newTestService(t, "", dialer)

	_, err := svc.FetchLatestPositionByMMSI(context.Background(), "123456789", FetchOptions{})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if dialer.attempts.Load() != 0 {
		t.Errorf("expected zero connection attempts, got %d", dialer.attempts.Load())
	}
}

func TestFetchLatestPositionByMMSI(t *testing.T) {
	dialer := newFakeDialer()
	dialer.next = func() *fakeConn {
		conn := newFakeConn()
		conn.frames <- fakeFrame{data: positionFrame("987654321", "-22.9", "-43.2")}
		return conn
	}
	svc := newTestService(t, "key", dialer)

	rec, err := svc.FetchLatestPositionByMMSI(context.Background(), "987654321", FetchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.VesselID != "987654321" || rec.Lat != -22.9 || rec.Lon != -43.2 {
		t.Errorf("unexpected record %+v", rec)
	}

	// Second fetch within the TTL must come from the cache.
	if _, err := svc.FetchLatestPositionByMMSI(context.Background(), "987654321", FetchOptions{}); err != nil {
		t.Fatalf("unexpected error on cached fetch: %v", err)
	}
	if dialer.attempts.Load() != 1 {
		t.Errorf("expected the second fetch to hit the cache, got %d dials", dialer.attempts.Load())
	}
}

func TestFetchLatestPositionNoReport(t *testing.T) {
	dialer := newFakeDialer()
	svc := newTestService(t, "key", dialer)

	rec, err := svc.FetchLatestPositionByMMSI(context.Background(), "123456789", FetchOptions{Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("an empty window is not an error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected no record, got %+v", rec)
	}
}

func TestFetchVesselsInZoneCoalescesNearbyBounds(t *testing.T) {
	dialer := newFakeDialer()
	dialer.next = func() *fakeConn {
		conn := newFakeConn()
		conn.frames <- fakeFrame{data: positionFrame("244660000", "15.0", "35.0")}
		return conn
	}
	svc := newTestService(t, "key", dialer)

	b1 := Bounds{MinLat: 10.00001, MaxLat: 20, MinLon: 30, MaxLon: 40}
	b2 := Bounds{MinLat: 10.00002, MaxLat: 20, MinLon: 30, MaxLon: 40}

	recs, err := svc.FetchVesselsInZone(context.Background(), b1, FetchOptions{MaxRecords: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	// Bounds differing below the 4-decimal key resolution share one
	// cache entry, so no second session is opened.
	if _, err := svc.FetchVesselsInZone(context.Background(), b2, FetchOptions{MaxRecords: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dialer.attempts.Load() != 1 {
		t.Errorf("expected coalesced bounds to share a cache entry, got %d dials", dialer.attempts.Load())
	}

	// A bound differing by 0.001 is a distinct zone.
	b3 := Bounds{MinLat: 10.001, MaxLat: 20, MinLon: 30, MaxLon: 40}
	if _, err := svc.FetchVesselsInZone(context.Background(), b3, FetchOptions{MaxRecords: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dialer.attempts.Load() != 2 {
		t.Errorf("expected a distinct zone to open a session, got %d dials", dialer.attempts.Load())
	}
}

func TestFetchTrackReturnsSortedPoints(t *testing.T) {
	dialer := newFakeDialer()
	dialer.next = func() *fakeConn {
		conn := newFakeConn()
		// Reports arrive out of timestamp order.
		conn.frames <- fakeFrame{data: []byte(`{"MetaData":{"MMSI":987654321,"Latitude":1,"Longitude":1,"time_utc":"2026-03-14T10:02:00Z"}}`)}
		conn.frames <- fakeFrame{data: []byte(`{"MetaData":{"MMSI":987654321,"Latitude":2,"Longitude":2,"time_utc":"2026-03-14T10:00:00Z"}}`)}
		conn.frames <- fakeFrame{data: []byte(`{"MetaData":{"MMSI":987654321,"Latitude":3,"Longitude":3,"time_utc":"2026-03-14T10:01:00Z"}}`)}
		return conn
	}
	svc := newTestService(t, "key", dialer)

	recs, err := svc.FetchTrackByMMSI(context.Background(), "987654321", TrackOptions{
		FetchOptions: FetchOptions{MaxRecords: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected every report kept for a track, got %d", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i-1].Timestamp > recs[i].Timestamp {
			t.Fatalf("track not sorted ascending: %q before %q", recs[i-1].Timestamp, recs[i].Timestamp)
		}
	}
}

func TestFetchFleetStatus(t *testing.T) {
	dialer := newFakeDialer()
	dialer.next = func() *fakeConn {
		conn := newFakeConn()
		conn.frames <- fakeFrame{data: positionFrame("111111111", "1.0", "1.0")}
		conn.frames <- fakeFrame{data: positionFrame("222222222", "2.0", "2.0")}
		return conn
	}
	svc := newTestService(t, "key", dialer)

	recs, err := svc.FetchFleetStatus(context.Background(), []string{"111111111", "222222222"}, FetchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 fleet members, got %d", len(recs))
	}

	// Member order must not defeat the cache.
	if _, err := svc.FetchFleetStatus(context.Background(), []string{"222222222", "111111111"}, FetchOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dialer.attempts.Load() != 1 {
		t.Errorf("expected reordered fleet to hit the cache, got %d dials", dialer.attempts.Load())
	}
}

func TestFetchFleetStatusEmptyList(t *testing.T) {
	svc := newTestService(t, "key", newFakeDialer())
	recs, err := svc.FetchFleetStatus(context.Background(), nil, FetchOptions{})
	if err != nil || recs != nil {
		t.Fatalf("expected nil result for an empty fleet, got %v, %v", recs, err)
	}
}

func TestBreakerOpensAfterRepeatedDialFailures(t *testing.T) {
	dialer := newFakeDialer()
	dialer.dialErr = errors.New("dial tcp: connection refused")
	svc := newTestService(t, "key", dialer)

	for i := 0; i < 3; i++ {
		if _, err := svc.FetchLatestPositionByMMSI(context.Background(), "123456789", FetchOptions{}); err == nil {
			t.Fatal("expected a transport error")
		}
	}

	_, err := svc.FetchLatestPositionByMMSI(context.Background(), "123456789", FetchOptions{})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected the breaker to be open, got %v", err)
	}
	if dialer.attempts.Load() != 3 {
		t.Errorf("an open breaker must not dial, got %d attempts", dialer.attempts.Load())
	}
}
