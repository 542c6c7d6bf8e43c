// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

// Package config loads Tidewatch configuration with Koanf v2 from
// layered sources: built-in defaults, an optional YAML file, then
// environment variables (highest priority).
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the process-wide configuration, read once at startup.
type Config struct {
	Upstream UpstreamConfig `koanf:"upstream"`
	Server   ServerConfig   `koanf:"server"`
	Fetch    FetchConfig    `koanf:"fetch"`
	Cache    CacheConfig    `koanf:"cache"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// UpstreamConfig describes the AIS position feed.
type UpstreamConfig struct {
	// URL is the feed's websocket endpoint.
	URL string `koanf:"url"`

	// APIKey is the static feed credential. An empty key is not a
	// startup error: the server boots, but every fetch fails fast
	// until the key is configured.
	APIKey string `koanf:"api_key"`

	// DialsPerMinute caps upstream session opens. Zero disables the
	// cap.
	DialsPerMinute int `koanf:"dials_per_minute"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// FetchConfig holds defaults applied when a caller does not specify a
// budget.
type FetchConfig struct {
	// Timeout is the default collection window.
	Timeout time.Duration `koanf:"timeout"`

	// MaxRecords is the default early-exit ceiling for zone bursts.
	MaxRecords int `koanf:"max_records"`
}

// CacheConfig tunes the position cache.
type CacheConfig struct {
	// SweepInterval is how often expired entries are reaped in the
	// background.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// APIConfig tunes the HTTP surface.
type APIConfig struct {
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, applied before file and
// environment layers.
func defaultConfig() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			URL:            "wss://stream.aisstream.io/v0/stream",
			APIKey:         "",
			DialsPerMinute: 30,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    4326, // EPSG:4326, the lat/lon coordinate system AIS reports in
			Timeout: 30 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:    5 * time.Second,
			MaxRecords: 500,
		},
		Cache: CacheConfig{
			SweepInterval: time.Minute,
		},
		API: APIConfig{
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for values that cannot work. A
// missing API key is deliberately not a validation error; see
// UpstreamConfig.APIKey.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Upstream.URL)
	if err != nil {
		return fmt.Errorf("upstream.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("upstream.url: scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("upstream.url: missing host")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}

	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout: must be positive")
	}
	if c.Fetch.MaxRecords <= 0 {
		return fmt.Errorf("fetch.max_records: must be positive")
	}

	if c.Upstream.DialsPerMinute < 0 {
		return fmt.Errorf("upstream.dials_per_minute: must not be negative")
	}

	return nil
}
