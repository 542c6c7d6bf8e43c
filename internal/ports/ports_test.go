// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

package ports

import (
	"testing"
	"time"

	"github.com/tidewatch/tidewatch/internal/cache"
)

// countingDirectory tracks how often the underlying lookup is hit.
type countingDirectory struct {
	next  Directory
	calls int
}

func (d *countingDirectory) Lookup(locode string) (Port, bool) {
	d.calls++
	return d.next.Lookup(locode)
}

func TestInMemoryLookup(t *testing.T) {
	dir := NewInMemoryDirectory(SeedPorts())

	p, ok := dir.Lookup("NLRTM")
	if !ok {
		t.Fatal("expected NLRTM to resolve")
	}
	if p.Name != "Rotterdam" || p.Country != "NL" {
		t.Errorf("unexpected port %+v", p)
	}

	if _, ok := dir.Lookup("XXXXX"); ok {
		t.Error("expected unknown locode to miss")
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	dir := NewInMemoryDirectory(SeedPorts())

	for _, locode := range []string{"nlrtm", "NlRtM", " NLRTM "} {
		if _, ok := dir.Lookup(locode); !ok {
			t.Errorf("expected %q to resolve", locode)
		}
	}
}

func TestCachedDirectoryHitsCacheOnRepeat(t *testing.T) {
	c := cache.New(time.Hour)
	t.Cleanup(c.Stop)

	counting := &countingDirectory{next: NewInMemoryDirectory(SeedPorts())}
	dir := NewCachedDirectory(counting, c)

	if _, ok := dir.Lookup("SGSIN"); !ok {
		t.Fatal("expected SGSIN to resolve")
	}
	if _, ok := dir.Lookup("sgsin"); !ok {
		t.Fatal("expected cached SGSIN to resolve")
	}
	if counting.calls != 1 {
		t.Errorf("expected one underlying lookup, got %d", counting.calls)
	}
}

func TestCachedDirectoryDoesNotCacheMisses(t *testing.T) {
	c := cache.New(time.Hour)
	t.Cleanup(c.Stop)

	counting := &countingDirectory{next: NewInMemoryDirectory(SeedPorts())}
	dir := NewCachedDirectory(counting, c)

	dir.Lookup("XXXXX")
	dir.Lookup("XXXXX")
	if counting.calls != 2 {
		t.Errorf("expected misses to pass through every time, got %d calls", counting.calls)
	}
	if stats := c.GetStats(); stats.KeyCount != 0 {
		t.Errorf("expected no cached entries for misses, got %d keys", stats.KeyCount)
	}
}
