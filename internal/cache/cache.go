// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

// Package cache provides the in-memory TTL store backing position,
// zone, track, and reference-data lookups.
//
// The cache is an explicit instance constructed once at process start
// and injected into every consumer; there is no package-level
// singleton, so tests construct isolated instances freely. It is
// process-local: nothing here is safe for multi-process sharing, and
// no attempt is made at distributed caching.
package cache

import (
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tidewatch/tidewatch/internal/metrics"
)

// DefaultSweepInterval is how often the background sweep removes
// entries that were set but never read again.
const DefaultSweepInterval = time.Minute

// entry is one cached item. valueBytes is the approximate encoded size
// of the payload, estimated once at Set time.
type entry struct {
	value      interface{}
	expiresAt  time.Time
	valueBytes int64
}

// Stats is a point-in-time snapshot of cache performance counters.
type Stats struct {
	KeyCount         int64     `json:"keyCount"`
	Hits             int64     `json:"hits"`
	Misses           int64     `json:"misses"`
	Evictions        int64     `json:"evictions"`
	ApproxKeyBytes   int64     `json:"approxKeySize"`
	ApproxValueBytes int64     `json:"approxValueSize"`
	LastSweep        time.Time `json:"lastSweep"`
}

// Cache is a thread-safe in-memory key-value store with per-entry TTL.
// Expiry is lazy on read plus a periodic background sweep that bounds
// memory from write-only entries.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	statsMu   sync.Mutex
	hits      int64
	misses    int64
	evictions int64
	lastSweep time.Time

	stop chan struct{}
	once sync.Once
}

// New creates a cache and starts its background sweep goroutine. Call
// Stop when the cache is no longer needed. A non-positive interval
// falls back to DefaultSweepInterval.
func New(sweepInterval time.Duration) *Cache {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	c := &Cache{
		entries:   make(map[string]entry),
		lastSweep: time.Now(),
		stop:      make(chan struct{}),
	}
	go c.sweepLoop(sweepInterval)
	return c
}

// Get retrieves the value stored under key. An entry past its expiry
// returns (nil, false) and is removed immediately, without waiting for
// the next sweep.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a Set may have replaced the
		// entry between the two lock acquisitions.
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
			c.recordEviction()
		}
		c.mu.Unlock()
		c.recordMiss()
		return nil, false
	}

	c.recordHit()
	return e.value, true
}

// Set stores value under key for ttl. An existing entry under the same
// key is replaced, including its expiry.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	e := entry{
		value:      value,
		expiresAt:  time.Now().Add(ttl),
		valueBytes: approxSize(value),
	}

	c.mu.Lock()
	c.entries[key] = e
	n := len(c.entries)
	c.mu.Unlock()

	metrics.CacheKeys.Set(float64(n))
}

// Delete removes the entry under key. No-op for absent keys.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	n := len(c.entries)
	c.mu.Unlock()

	if existed {
		c.recordEviction()
	}
	metrics.CacheKeys.Set(float64(n))
}

// Clear removes every entry in one map replacement.
func (c *Cache) Clear() {
	c.mu.Lock()
	evicted := int64(len(c.entries))
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.statsMu.Lock()
	c.evictions += evicted
	c.statsMu.Unlock()
	metrics.CacheKeys.Set(0)
}

// GetStats returns a snapshot of the cache counters, including the
// approximate byte footprint of keys and encoded values.
func (c *Cache) GetStats() Stats {
	var keyBytes, valueBytes int64
	c.mu.RLock()
	count := int64(len(c.entries))
	for k, e := range c.entries {
		keyBytes += int64(len(k))
		valueBytes += e.valueBytes
	}
	c.mu.RUnlock()

	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return Stats{
		KeyCount:         count,
		Hits:             c.hits,
		Misses:           c.misses,
		Evictions:        c.evictions,
		ApproxKeyBytes:   keyBytes,
		ApproxValueBytes: valueBytes,
		LastSweep:        c.lastSweep,
	}
}

// Stop terminates the background sweep goroutine. Safe to call more
// than once.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// sweepLoop periodically removes expired entries.
func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// sweep removes all expired entries in one pass.
func (c *Cache) sweep() {
	now := time.Now()
	var evicted int64

	c.mu.Lock()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	c.statsMu.Lock()
	c.evictions += evicted
	c.lastSweep = now
	c.statsMu.Unlock()
	metrics.CacheKeys.Set(float64(n))
}

func (c *Cache) recordHit() {
	c.statsMu.Lock()
	c.hits++
	c.statsMu.Unlock()
	metrics.CacheHits.Inc()
}

func (c *Cache) recordMiss() {
	c.statsMu.Lock()
	c.misses++
	c.statsMu.Unlock()
	metrics.CacheMisses.Inc()
}

func (c *Cache) recordEviction() {
	c.statsMu.Lock()
	c.evictions++
	c.statsMu.Unlock()
}

// approxSize estimates the encoded size of a payload. Values that do
// not marshal report zero rather than failing the Set.
func approxSize(value interface{}) int64 {
	data, err := json.Marshal(value)
	if err != nil {
		return 0
	}
	return int64(len(data))
}
