// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

// Package ais implements the live-position ingestion pipeline for the
// AIS (Automatic Identification System) maritime broadcast feed.
//
// The pipeline has four parts:
//
//   - Normalize: maps a raw feed message of any recognized shape to a
//     canonical PositionRecord, or reports that no position is present.
//   - Aggregator: a keyed latest-wins store that deduplicates the many
//     reports a single vessel broadcasts within one collection burst.
//   - session: one bounded streaming request against the upstream feed.
//     It connects, subscribes, collects normalized records, and settles
//     exactly once on whichever of timeout, record budget, transport
//     error, or connection close fires first.
//   - Service: the caller-facing fetch operations. Each probes the
//     position cache, runs a session on a miss, and stores the result
//     under a tier-specific TTL.
//
// Sessions are independent: the only state shared between them is the
// injected cache. Retry and backoff are deliberately left to callers.
package ais
