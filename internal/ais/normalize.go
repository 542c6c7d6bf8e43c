// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

package ais

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// The feed multiplexes several message shapes over one connection. Every
// shape carries up to three groupings we care about: a metadata block, a
// position body (one of several named variants nested under the message
// envelope), and occasionally fields at the top level. Field extraction
// is driven by the declared precedence tables below; the first lookup
// that yields a defined value wins.

// scope selects which view of the raw message a lookup reads from.
type scope int

const (
	scopeMeta scope = iota
	scopeBody
	scopeRoot
)

// lookup is one step of a precedence chain: read key from scope.
type lookup struct {
	scope scope
	key   string
}

// Precedence tables, evaluated in order. These encode every historical
// field spelling the upstream feed has used; keep new spellings at the
// end of the relevant chain so existing sources keep winning.
var (
	latChain = []lookup{
		{scopeMeta, "Latitude"},
		{scopeMeta, "latitude"},
		{scopeBody, "Latitude"},
		{scopeBody, "latitude"},
	}

	lonChain = []lookup{
		{scopeMeta, "Longitude"},
		{scopeMeta, "longitude"},
		{scopeBody, "Longitude"},
		{scopeBody, "longitude"},
	}

	vesselIDChain = []lookup{
		{scopeMeta, "MMSI"},
		{scopeMeta, "mmsi"},
		{scopeBody, "MMSI"},
		{scopeBody, "mmsi"},
		{scopeRoot, "MMSI"},
		{scopeRoot, "mmsi"},
	}

	imoChain = []lookup{
		{scopeMeta, "ImoNumber"},
		{scopeMeta, "IMO"},
		{scopeMeta, "imo"},
		{scopeBody, "ImoNumber"},
		{scopeBody, "IMO"},
		{scopeBody, "imo"},
	}

	nameChain = []lookup{
		{scopeMeta, "ShipName"},
		{scopeMeta, "Name"},
		{scopeMeta, "name"},
		{scopeBody, "ShipName"},
		{scopeBody, "Name"},
		{scopeBody, "name"},
	}

	callSignChain = []lookup{
		{scopeMeta, "CallSign"},
		{scopeMeta, "call_sign"},
		{scopeBody, "CallSign"},
		{scopeBody, "call_sign"},
	}

	cogChain = []lookup{
		{scopeMeta, "Cog"},
		{scopeMeta, "COG"},
		{scopeMeta, "course"},
		{scopeBody, "Cog"},
		{scopeBody, "COG"},
		{scopeBody, "course"},
	}

	sogChain = []lookup{
		{scopeMeta, "Sog"},
		{scopeMeta, "SOG"},
		{scopeMeta, "speed"},
		{scopeBody, "Sog"},
		{scopeBody, "SOG"},
		{scopeBody, "speed"},
	}

	headingChain = []lookup{
		{scopeMeta, "TrueHeading"},
		{scopeMeta, "Heading"},
		{scopeMeta, "heading"},
		{scopeBody, "TrueHeading"},
		{scopeBody, "Heading"},
		{scopeBody, "heading"},
	}

	navStatusChain = []lookup{
		{scopeMeta, "NavigationalStatus"},
		{scopeMeta, "NavStatus"},
		{scopeMeta, "nav_status"},
		{scopeBody, "NavigationalStatus"},
		{scopeBody, "NavStatus"},
		{scopeBody, "nav_status"},
	}

	timestampChain = []lookup{
		{scopeMeta, "time_utc"},
		{scopeMeta, "TimeUTC"},
		{scopeMeta, "Timestamp"},
		{scopeMeta, "timestamp"},
		{scopeBody, "Timestamp"},
		{scopeBody, "timestamp"},
	}
)

// views holds the three resolved groupings of one raw message.
type views struct {
	meta map[string]any
	body map[string]any
	root map[string]any
}

// Normalize maps one raw feed frame to a canonical PositionRecord.
// It is pure and never panics; malformed input yields (zero, false).
func Normalize(raw []byte) (PositionRecord, bool) {
	msg, err := decodeFrame(raw)
	if err != nil {
		return PositionRecord{}, false
	}
	return normalizeMessage(msg)
}

// decodeFrame parses a frame preserving numeric precision: coordinates
// come out as json.Number, not float64, so no decimals are lost before
// the coercion step.
func decodeFrame(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var msg map[string]any
	if err := dec.Decode(&msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// normalizeMessage applies the precedence tables to an already-decoded
// message. A message lacking either coordinate is dropped, never
// defaulted to zero: (0, 0) is a real position off the coast of Ghana.
func normalizeMessage(msg map[string]any) (PositionRecord, bool) {
	if msg == nil {
		return PositionRecord{}, false
	}

	v := views{
		meta: firstMap(msg, "MetaData", "Metadata", "metadata"),
		body: positionBody(msg),
		root: msg,
	}

	lat, latOK := resolveFloat(v, latChain)
	lon, lonOK := resolveFloat(v, lonChain)
	if !latOK || !lonOK {
		return PositionRecord{}, false
	}

	rec := PositionRecord{
		VesselID:  resolveString(v, vesselIDChain),
		IMO:       resolveString(v, imoChain),
		Name:      strings.TrimSpace(resolveString(v, nameChain)),
		CallSign:  strings.TrimSpace(resolveString(v, callSignChain)),
		Lat:       lat,
		Lon:       lon,
		NavStatus: resolveString(v, navStatusChain),
		Timestamp: resolveTimestamp(v),
	}

	if cog, ok := resolveFloat(v, cogChain); ok {
		rec.Cog = &cog
	}
	if sog, ok := resolveFloat(v, sogChain); ok {
		rec.Sog = &sog
	}
	if hdg, ok := resolveFloat(v, headingChain); ok {
		rec.Heading = &hdg
	}

	return rec, true
}

// positionBody locates the position-body grouping: the first object
// nested under the message envelope. The envelope holds exactly one of
// the named report variants (PositionReport, ClassAPositionReport,
// StandardClassBCSPositionReport, ...), so variant names never need to
// be enumerated here.
func positionBody(msg map[string]any) map[string]any {
	env := firstMap(msg, "Message", "message")
	if env == nil {
		return nil
	}
	for _, val := range env {
		if m, ok := val.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// firstMap returns the first of the named keys that holds an object.
func firstMap(msg map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if m, ok := msg[k].(map[string]any); ok {
			return m
		}
	}
	return nil
}

// resolve walks a precedence chain and returns the first defined value.
func resolve(v views, chain []lookup) (any, bool) {
	for _, l := range chain {
		var src map[string]any
		switch l.scope {
		case scopeMeta:
			src = v.meta
		case scopeBody:
			src = v.body
		case scopeRoot:
			src = v.root
		}
		if src == nil {
			continue
		}
		if val, ok := src[l.key]; ok && val != nil {
			return val, true
		}
	}
	return nil, false
}

// resolveFloat resolves a chain to a numeric value. The parse is
// decimal-preserving: json.Number carries the exact source text, and
// strconv.ParseFloat round-trips through FormatFloat(-1) without loss
// for every decimal the feed emits.
func resolveFloat(v views, chain []lookup) (float64, bool) {
	val, ok := resolve(v, chain)
	if !ok {
		return 0, false
	}
	switch n := val.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// resolveString resolves a chain to a string, rendering numbers (MMSI
// and IMO arrive as numerics from some sources) in their source form.
func resolveString(v views, chain []lookup) string {
	val, ok := resolve(v, chain)
	if !ok {
		return ""
	}
	switch s := val.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// timestampLayouts lists the time formats the feed has been observed to
// emit, most common first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05 -0700 MST",
	"2006-01-02 15:04:05",
}

// resolveTimestamp coerces the first defined timestamp field to
// RFC 3339 UTC, defaulting to the normalization time when the source
// omits a parseable value.
func resolveTimestamp(v views) string {
	val, ok := resolve(v, timestampChain)
	if ok {
		if s, isStr := val.(string); isStr {
			for _, layout := range timestampLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}
