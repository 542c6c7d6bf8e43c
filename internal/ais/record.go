// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

package ais

// PositionRecord is the canonical position report produced by the
// ingestion pipeline and consumed by the port-call and map layers.
//
// A record is only ever constructed with both Lat and Lon present; a
// message missing either coordinate yields no record at all rather than
// a partially-filled one. Optional numeric fields are pointers so that
// "not reported" is distinguishable from a legitimate zero (a heading
// of 0 degrees is a real value).
type PositionRecord struct {
	// VesselID is the primary vessel identifier, typically the MMSI.
	VesselID string `json:"vesselId"`

	// IMO is the optional permanent vessel identifier.
	IMO string `json:"imo,omitempty"`

	Name     string `json:"name,omitempty"`
	CallSign string `json:"callSign,omitempty"`

	// Lat is in decimal degrees, -90..90.
	Lat float64 `json:"lat"`

	// Lon is in decimal degrees, -180..180.
	Lon float64 `json:"lon"`

	// Cog is course over ground in degrees.
	Cog *float64 `json:"cog,omitempty"`

	// Sog is speed over ground in knots.
	Sog *float64 `json:"sog,omitempty"`

	// Heading is the true heading in degrees.
	Heading *float64 `json:"heading,omitempty"`

	// NavStatus is the navigational status text reported by the vessel.
	NavStatus string `json:"navStatus,omitempty"`

	// Timestamp is RFC 3339. When the source omits a usable time the
	// collection time is used instead.
	Timestamp string `json:"timestamp"`
}

// Bounds is a rectangular lat/lon region scoping a geographic query.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
}

// GlobalBounds covers the whole globe. Single-vessel fetches use it
// together with an MMSI allow-list because the feed has no per-vessel
// subscription without a bounding box.
var GlobalBounds = Bounds{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}

// box renders the bounds in the feed's corner-pair wire order:
// [[minlat, minlon], [maxlat, maxlon]].
func (b Bounds) box() [][2]float64 {
	return [][2]float64{{b.MinLat, b.MinLon}, {b.MaxLat, b.MaxLon}}
}
