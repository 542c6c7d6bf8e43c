// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

// Package ais error definitions.
//
// Only two error classes surface to callers: a missing feed credential
// (checked before any connection attempt) and a transport failure that
// occurs before the session settles. Malformed frames and messages
// without coordinates are absorbed inside the session so a single bad
// frame can never fail an otherwise-successful batch.
package ais

import "errors"

// ErrMissingAPIKey is returned when a fetch is attempted without a feed
// credential configured. It is raised before any connection attempt and
// is never retried automatically.
var ErrMissingAPIKey = errors.New("position feed API key is not configured")
