// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

package ais

import (
	"sync"
	"time"
)

// sink receives normalized records during one collection burst. The
// Aggregator deduplicates per vessel; the Recorder keeps every report.
// Both are created at session start, mutated only by message arrival,
// snapshotted exactly once at settlement, then discarded.
type sink interface {
	Insert(rec PositionRecord)
	Len() int
	Snapshot() []PositionRecord
}

// Aggregator is a keyed latest-wins store deduplicating the multiple
// reports a vessel broadcasts within one collection window. Vessels
// transmit position every few seconds, so even a short window can see
// several reports per vessel.
//
// Overwrite policy is last-arrival-wins by default: a later insertion
// for the same vessel fully replaces the earlier one regardless of the
// records' own timestamps. With out-of-order delivery (real AIS relays
// do reorder) that can keep a stale report; callers that care use
// InsertLatest instead, which compares timestamps before overwriting.
//
// Inserts come from the session's read loop while the settling trigger
// (a timer or cancellation) may snapshot from another goroutine, so all
// access is mutex-guarded.
type Aggregator struct {
	mu       sync.Mutex
	byVessel map[string]PositionRecord
}

// NewAggregator returns an empty aggregation burst.
func NewAggregator() *Aggregator {
	return &Aggregator{byVessel: make(map[string]PositionRecord)}
}

// Insert stores rec under its VesselID, replacing any earlier record
// for the same vessel (last-arrival-wins).
func (a *Aggregator) Insert(rec PositionRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byVessel[rec.VesselID] = rec
}

// InsertLatest stores rec only if it is at least as recent as the
// record already held for the vessel. Records whose timestamps do not
// parse fall back to last-arrival-wins.
func (a *Aggregator) InsertLatest(rec PositionRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev, ok := a.byVessel[rec.VesselID]
	if ok && isOlder(rec.Timestamp, prev.Timestamp) {
		return
	}
	a.byVessel[rec.VesselID] = rec
}

// Len reports the number of distinct vessels seen so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byVessel)
}

// Snapshot returns the collected records in no particular order.
func (a *Aggregator) Snapshot() []PositionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]PositionRecord, 0, len(a.byVessel))
	for _, rec := range a.byVessel {
		out = append(out, rec)
	}
	return out
}

// isOlder reports whether a is strictly before b. Unparseable
// timestamps compare as not-older so insertion proceeds.
func isOlder(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339, a)
	tb, errB := time.Parse(time.RFC3339, b)
	if errA != nil || errB != nil {
		return false
	}
	return ta.Before(tb)
}

// Recorder keeps every normalized record in arrival order, without
// deduplication. The track fetch uses it so one vessel's burst yields
// a sequence of points rather than a single latest position.
type Recorder struct {
	mu      sync.Mutex
	records []PositionRecord
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Insert appends rec.
func (r *Recorder) Insert(rec PositionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Len reports the number of records collected so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Snapshot returns the collected records in arrival order.
func (r *Recorder) Snapshot() []PositionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PositionRecord, len(r.records))
	copy(out, r.records)
	return out
}
