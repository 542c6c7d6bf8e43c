// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

package ais

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tidewatch/tidewatch/internal/logging"
	"github.com/tidewatch/tidewatch/internal/metrics"
)

// maxFrameSize bounds a single inbound frame. Position reports are a
// few hundred bytes; anything near this limit is garbage.
const maxFrameSize = 256 * 1024

// acceptedMessageTypes is the fixed allow-list sent in the subscription
// frame. Only position-bearing report variants are requested.
var acceptedMessageTypes = []string{
	"PositionReport",
	"ClassAPositionReport",
	"StandardClassBCSPositionReport",
}

// Conn is the subset of *websocket.Conn the session uses. Narrowed to
// an interface so tests can drive a session with a scripted connection.
type Conn interface {
	WriteJSON(v interface{}) error
	ReadMessage() (messageType int, p []byte, err error)
	SetReadLimit(limit int64)
	Close() error
}

// Dialer opens the duplex connection to the upstream feed.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

// wsDialer is the production Dialer backed by gorilla/websocket.
type wsDialer struct {
	dialer *websocket.Dialer
}

// NewDialer returns the production websocket dialer.
func NewDialer() Dialer {
	return &wsDialer{dialer: &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}}
}

func (d *wsDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// subscription is the single outbound frame sent after connect. Field
// names are the feed's wire format; do not rename.
type subscription struct {
	APIKey             string         `json:"APIKey"`
	BoundingBoxes      [][][2]float64 `json:"BoundingBoxes"`
	FilterMessageTypes []string       `json:"FilterMessageTypes"`
	FiltersShipMMSI    []string       `json:"FiltersShipMMSI,omitempty"`
}

// Settlement trigger labels, also used as metric label values.
const (
	reasonMaxCount = "max_count"
	reasonTimeout  = "timeout"
	reasonError    = "error"
	reasonClose    = "close"
	reasonCanceled = "canceled"
)

// collectRequest parameterizes one bounded collection burst.
type collectRequest struct {
	// Boxes scope the subscription geographically. At least one box is
	// required by the feed.
	Boxes []Bounds

	// MMSIFilter optionally narrows the subscription to specific
	// vessels.
	MMSIFilter []string

	// Timeout is the hard ceiling on the collection window.
	Timeout time.Duration

	// MaxRecords settles the session early once the sink holds this
	// many records. Zero means no early exit.
	MaxRecords int

	// Sink receives normalized records; Aggregator for deduplicated
	// bursts, Recorder for tracks.
	Sink sink
}

// settlement carries the terminal outcome of a session.
type settlement struct {
	records []PositionRecord
	err     error
}

// session is one bounded streaming request. It is created in the
// collecting state and settles exactly once: whichever of timeout,
// record budget, transport error, connection close, or external
// cancellation fires first wins, tears the connection down, and
// delivers the result. All later triggers are no-ops.
type session struct {
	conn    Conn
	sink    sink
	started time.Time

	// settled is the exactly-once guard. Every trigger path goes
	// through a single CompareAndSwap; checking and setting in one
	// indivisible step is what makes a timer firing on the same tick
	// as the final message race-free.
	settled atomic.Bool

	// done is buffered so the winning trigger never blocks.
	done chan settlement
}

// collect opens one streaming session against the feed and blocks until
// settlement. A timeout with zero collected records is a success with
// an empty result, not an error.
func collect(ctx context.Context, dialer Dialer, url, apiKey string, req collectRequest) ([]PositionRecord, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	metrics.FeedConnectionAttempts.Inc()
	conn, err := dialer.DialContext(ctx, url)
	if err != nil {
		metrics.FeedConnectionErrors.Inc()
		return nil, fmt.Errorf("connect to position feed: %w", err)
	}

	boxes := make([][][2]float64, 0, len(req.Boxes))
	for _, b := range req.Boxes {
		boxes = append(boxes, b.box())
	}
	sub := subscription{
		APIKey:             apiKey,
		BoundingBoxes:      boxes,
		FilterMessageTypes: acceptedMessageTypes,
		FiltersShipMMSI:    req.MMSIFilter,
	}
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		metrics.FeedConnectionErrors.Inc()
		return nil, fmt.Errorf("subscribe to position feed: %w", err)
	}

	s := &session{
		conn:    conn,
		sink:    req.Sink,
		started: time.Now(),
		done:    make(chan settlement, 1),
	}

	timer := time.AfterFunc(req.Timeout, func() {
		s.settle(reasonTimeout, nil)
	})
	defer timer.Stop()

	go s.readLoop(req.MaxRecords)

	select {
	case st := <-s.done:
		return st.records, st.err
	case <-ctx.Done():
		// External cancellation closes early with whatever partial
		// results exist, same as timeout expiry.
		s.settle(reasonCanceled, nil)
		st := <-s.done
		return st.records, st.err
	}
}

// readLoop drains inbound frames until a settlement trigger fires.
func (s *session) readLoop(maxRecords int) {
	s.conn.SetReadLimit(maxFrameSize)

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			// A close frame without a prior error is equivalent to the
			// timeout expiring: resolve with partial results. Anything
			// else is a transport failure and rejects the session.
			// Either way the guard makes this a no-op if teardown from
			// another trigger caused the read error.
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				s.settle(reasonClose, nil)
			} else {
				s.settle(reasonError, fmt.Errorf("position feed read: %w", err))
			}
			return
		}

		metrics.FeedFramesReceived.Inc()

		msg, err := decodeFrame(frame)
		if err != nil {
			// A single malformed frame never aborts the session.
			metrics.FeedParseErrors.Inc()
			logging.Warn().Err(err).Int("bytes", len(frame)).Msg("skipping malformed feed frame")
			continue
		}

		rec, ok := normalizeMessage(msg)
		if !ok || rec.VesselID == "" {
			// Well-formed but without usable coordinates or identity;
			// dropped silently, not an error.
			continue
		}

		s.sink.Insert(rec)
		metrics.RecordsCollected.Inc()

		if maxRecords > 0 && s.sink.Len() >= maxRecords {
			s.settle(reasonMaxCount, nil)
			return
		}
	}
}

// settle performs the exactly-once transition to the terminal state:
// forced connection teardown (no close handshake, which could hang on a
// half-closed remote), then result delivery. Losing triggers return
// without side effects.
func (s *session) settle(reason string, err error) {
	if !s.settled.CompareAndSwap(false, true) {
		return
	}

	_ = s.conn.Close()

	metrics.SessionsSettled.WithLabelValues(reason).Inc()
	metrics.SessionDuration.Observe(time.Since(s.started).Seconds())

	if err != nil {
		s.done <- settlement{err: err}
		return
	}
	s.done <- settlement{records: s.sink.Snapshot()}
}
