// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

package ais

import (
	"strconv"
	"testing"
	"time"
)

func TestNormalizeDropsMessagesWithoutCoordinates(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty object", `{}`},
		{"metadata without coordinates", `{"MetaData":{"MMSI":123456789,"ShipName":"EVER GIVEN"}}`},
		{"latitude only", `{"MetaData":{"Latitude":10.5,"MMSI":123456789}}`},
		{"longitude only", `{"MetaData":{"Longitude":-43.2,"MMSI":123456789}}`},
		{"body latitude only", `{"Message":{"PositionReport":{"Latitude":10.5}}}`},
		{"coordinates under unknown keys", `{"MetaData":{"lat":10.5,"lng":-43.2}}`},
		{"null coordinates", `{"MetaData":{"Latitude":null,"Longitude":null}}`},
		{"non-numeric coordinates", `{"MetaData":{"Latitude":"north","Longitude":"west"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Normalize([]byte(tt.raw)); ok {
				t.Errorf("expected no record for %s", tt.raw)
			}
		})
	}
}

func TestNormalizeMalformedInput(t *testing.T) {
	for _, raw := range []string{"", "not json", `[1,2,3]`, `"string"`, `{"MetaData":`} {
		if _, ok := Normalize([]byte(raw)); ok {
			t.Errorf("expected no record for malformed input %q", raw)
		}
	}
}

func TestNormalizeMetadataWinsOverBody(t *testing.T) {
	raw := `{
		"MetaData": {"Latitude": 51.9225, "Longitude": 4.47917, "MMSI": 244660000},
		"Message": {"PositionReport": {"Latitude": 0.1, "Longitude": 0.2, "MMSI": 999999999}}
	}`

	rec, ok := Normalize([]byte(raw))
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.Lat != 51.9225 || rec.Lon != 4.47917 {
		t.Errorf("expected metadata coordinates to win, got %v/%v", rec.Lat, rec.Lon)
	}
	if rec.VesselID != "244660000" {
		t.Errorf("expected metadata MMSI to win, got %q", rec.VesselID)
	}
}

func TestNormalizeBodyFallback(t *testing.T) {
	raw := `{
		"Message": {"StandardClassBCSPositionReport": {
			"Latitude": -22.9, "Longitude": -43.2, "MMSI": 710000000,
			"Cog": 187.5, "Sog": 11.2, "TrueHeading": 190
		}}
	}`

	rec, ok := Normalize([]byte(raw))
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.Lat != -22.9 || rec.Lon != -43.2 {
		t.Errorf("unexpected coordinates %v/%v", rec.Lat, rec.Lon)
	}
	if rec.VesselID != "710000000" {
		t.Errorf("unexpected vessel id %q", rec.VesselID)
	}
	if rec.Cog == nil || *rec.Cog != 187.5 {
		t.Errorf("expected cog 187.5, got %v", rec.Cog)
	}
	if rec.Sog == nil || *rec.Sog != 11.2 {
		t.Errorf("expected sog 11.2, got %v", rec.Sog)
	}
	if rec.Heading == nil || *rec.Heading != 190 {
		t.Errorf("expected heading 190, got %v", rec.Heading)
	}
}

func TestNormalizeLowercaseAliases(t *testing.T) {
	raw := `{"metadata":{"latitude":1.25,"longitude":103.84,"mmsi":"563000000","nav_status":"UnderWayUsingEngine"}}`

	rec, ok := Normalize([]byte(raw))
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.Lat != 1.25 || rec.Lon != 103.84 {
		t.Errorf("unexpected coordinates %v/%v", rec.Lat, rec.Lon)
	}
	if rec.VesselID != "563000000" {
		t.Errorf("unexpected vessel id %q", rec.VesselID)
	}
	if rec.NavStatus != "UnderWayUsingEngine" {
		t.Errorf("unexpected nav status %q", rec.NavStatus)
	}
}

func TestNormalizeTopLevelMMSIFallback(t *testing.T) {
	raw := `{"MMSI": 367000000, "MetaData": {"Latitude": 40.7, "Longitude": -74.0}}`

	rec, ok := Normalize([]byte(raw))
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.VesselID != "367000000" {
		t.Errorf("expected top-level MMSI fallback, got %q", rec.VesselID)
	}
}

func TestNormalizePreservesCoordinatePrecision(t *testing.T) {
	// Round-tripping through parse and shortest-form format must
	// reproduce the source decimals exactly.
	coords := []string{"-22.9", "-43.2", "51.92250", "4.47917", "10.00001", "179.999999"}

	for _, want := range coords {
		raw := `{"MetaData":{"Latitude":` + want + `,"Longitude":0.5,"MMSI":1}}`
		rec, ok := Normalize([]byte(raw))
		if !ok {
			t.Fatalf("expected a record for latitude %s", want)
		}
		got := strconv.FormatFloat(rec.Lat, 'f', -1, 64)
		parsed, _ := strconv.ParseFloat(want, 64)
		expected := strconv.FormatFloat(parsed, 'f', -1, 64)
		if got != expected {
			t.Errorf("latitude %s: precision lost, got %s", want, got)
		}
	}
}

func TestNormalizeTimestampCoercion(t *testing.T) {
	raw := `{"MetaData":{"Latitude":1,"Longitude":2,"MMSI":1,"time_utc":"2026-03-14 09:26:53.589793238 +0000 UTC"}}`

	rec, ok := Normalize([]byte(raw))
	if !ok {
		t.Fatal("expected a record")
	}
	ts, err := time.Parse(time.RFC3339, rec.Timestamp)
	if err != nil {
		t.Fatalf("timestamp %q is not RFC 3339: %v", rec.Timestamp, err)
	}
	if ts.UTC().Format("2006-01-02 15:04:05") != "2026-03-14 09:26:53" {
		t.Errorf("unexpected coerced timestamp %q", rec.Timestamp)
	}
}

func TestNormalizeTimestampDefaultsToNow(t *testing.T) {
	before := time.Now().Add(-time.Second)
	rec, ok := Normalize([]byte(`{"MetaData":{"Latitude":1,"Longitude":2,"MMSI":1}}`))
	if !ok {
		t.Fatal("expected a record")
	}

	ts, err := time.Parse(time.RFC3339, rec.Timestamp)
	if err != nil {
		t.Fatalf("timestamp %q is not RFC 3339: %v", rec.Timestamp, err)
	}
	if ts.Before(before) || ts.After(time.Now().Add(time.Second)) {
		t.Errorf("default timestamp %q not near collection time", rec.Timestamp)
	}
}

func TestNormalizeShipNameAndCallSign(t *testing.T) {
	raw := `{"MetaData":{"Latitude":1,"Longitude":2,"MMSI":1,"ShipName":"MAERSK ALTAIR ","CallSign":"OWJP2"}}`

	rec, ok := Normalize([]byte(raw))
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.Name != "MAERSK ALTAIR" {
		t.Errorf("expected trimmed ship name, got %q", rec.Name)
	}
	if rec.CallSign != "OWJP2" {
		t.Errorf("unexpected call sign %q", rec.CallSign)
	}
}

func TestNormalizeOptionalFieldsAbsent(t *testing.T) {
	rec, ok := Normalize([]byte(`{"MetaData":{"Latitude":1,"Longitude":2,"MMSI":1}}`))
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.Cog != nil || rec.Sog != nil || rec.Heading != nil {
		t.Error("expected unreported numeric fields to stay nil")
	}
	if rec.NavStatus != "" {
		t.Errorf("expected empty nav status, got %q", rec.NavStatus)
	}
}
