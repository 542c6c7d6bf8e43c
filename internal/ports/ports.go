// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

// Package ports provides slow-changing port reference data behind the
// Directory interface. The port-call CRUD layer is an external
// collaborator; this package models only the lookup surface it needs,
// with an in-memory provider and a caching decorator over the
// reference TTL tier.
package ports

import (
	"strings"

	"github.com/tidewatch/tidewatch/internal/cache"
)

// Port is one port reference record, keyed by UN/LOCODE.
type Port struct {
	Locode  string  `json:"locode"`
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Directory resolves a UN/LOCODE to a port record.
type Directory interface {
	Lookup(locode string) (Port, bool)
}

// InMemoryDirectory serves a fixed port table. The production table is
// loaded from the tenant database by the CRUD layer; this provider
// backs tests and standalone deployments.
type InMemoryDirectory struct {
	byLocode map[string]Port
}

// NewInMemoryDirectory builds a directory from the given ports.
func NewInMemoryDirectory(ports []Port) *InMemoryDirectory {
	d := &InMemoryDirectory{byLocode: make(map[string]Port, len(ports))}
	for _, p := range ports {
		d.byLocode[normalizeLocode(p.Locode)] = p
	}
	return d
}

// Lookup resolves a locode case-insensitively.
func (d *InMemoryDirectory) Lookup(locode string) (Port, bool) {
	p, ok := d.byLocode[normalizeLocode(locode)]
	return p, ok
}

// CachedDirectory decorates a Directory with the cache's reference
// tier. Port records change rarely, so the hour-long TTL is safe.
type CachedDirectory struct {
	next  Directory
	cache *cache.Cache
}

// NewCachedDirectory wraps next with reference-tier caching.
func NewCachedDirectory(next Directory, c *cache.Cache) *CachedDirectory {
	return &CachedDirectory{next: next, cache: c}
}

// Lookup probes the cache before the underlying directory. Negative
// lookups are not cached; an unknown locode stays a directory call.
func (d *CachedDirectory) Lookup(locode string) (Port, bool) {
	key := cache.ReferenceKey("port", normalizeLocode(locode))
	if cached, ok := d.cache.Get(key); ok {
		if p, ok := cached.(Port); ok {
			return p, true
		}
	}

	p, ok := d.next.Lookup(locode)
	if !ok {
		return Port{}, false
	}

	d.cache.Set(key, p, cache.TTLReference)
	return p, true
}

func normalizeLocode(locode string) string {
	return strings.ToUpper(strings.TrimSpace(locode))
}

// SeedPorts returns a small built-in table for standalone deployments.
func SeedPorts() []Port {
	return []Port{
		{Locode: "NLRTM", Name: "Rotterdam", Country: "NL", Lat: 51.9225, Lon: 4.47917},
		{Locode: "SGSIN", Name: "Singapore", Country: "SG", Lat: 1.26417, Lon: 103.84},
		{Locode: "BRRIO", Name: "Rio de Janeiro", Country: "BR", Lat: -22.8944, Lon: -43.1806},
		{Locode: "USNYC", Name: "New York", Country: "US", Lat: 40.7017, Lon: -74.0117},
		{Locode: "CNSHA", Name: "Shanghai", Country: "CN", Lat: 31.2397, Lon: 121.499},
	}
}
