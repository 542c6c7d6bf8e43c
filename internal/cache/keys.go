// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

package cache

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TTL tiers, chosen per data-volatility/upstream-cost tradeoff. Zone
// queries are the most expensive to refresh (many vessels per burst),
// reference data almost never changes, fleet status sits in between.
const (
	TTLPosition  = 60 * time.Second
	TTLZone      = 5 * time.Minute
	TTLTrack     = 15 * time.Minute
	TTLReference = time.Hour
	TTLFleet     = 30 * time.Second
)

// IDType selects which vessel identifier a key is built from.
type IDType string

const (
	IDTypeMMSI IDType = "mmsi"
	IDTypeIMO  IDType = "imo"
)

// Key formats are part of the caching contract: callers must reproduce
// them byte-for-byte to get hits. Build keys only through these
// functions.

// PositionKey returns the key for a single vessel's latest position.
func PositionKey(t IDType, id string) string {
	return fmt.Sprintf("position:%s:%s", t, id)
}

// ZoneKey returns the key for a bounding-box query. Each bound is
// formatted to exactly 4 decimal places, which coalesces boxes that
// differ only below ~11 m of geographic resolution into one entry;
// negligible precision traded for a bounded key space.
func ZoneKey(minLat, maxLat, minLon, maxLon float64) string {
	return fmt.Sprintf("zone:%.4f:%.4f:%.4f:%.4f", minLat, maxLat, minLon, maxLon)
}

// TrackKey returns the key for a vessel track covering the given number
// of hours.
func TrackKey(t IDType, id string, hours int) string {
	return fmt.Sprintf("track:%s:%s:%dh", t, id, hours)
}

// ReferenceKey returns the key for slow-changing reference data such as
// port records.
func ReferenceKey(kind, id string) string {
	return fmt.Sprintf("ref:%s:%s", kind, id)
}

// FleetKey returns the key for a fleet-status query. The member list is
// order-insensitive: ids are sorted before hashing so the same fleet
// always maps to the same entry.
func FleetKey(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return fmt.Sprintf("fleet:%x", sum[:8])
}
