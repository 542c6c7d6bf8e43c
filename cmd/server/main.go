// Tidewatch - Port Call Management and Live Vessel Position Tracking
// Copyright 2026 Tidewatch Maintainers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tidewatch/tidewatch

// Package main is the entry point for the Tidewatch position server.
//
// Tidewatch serves live vessel positions to the port-call management
// application. It opens short-lived streaming sessions against an AIS
// feed, deduplicates and normalizes the reports, and answers over a
// REST API backed by a TTL cache.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults.
//
//	export AISSTREAM_API_KEY=your-feed-key
//	export HTTP_PORT=4326
//	./tidewatch
//
// The server boots without a feed key, but every position fetch fails
// with a configuration error until one is set.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the listener stops
// accepting connections and in-flight requests get 10 seconds to
// complete. In-flight feed sessions settle on their own budgets.
//
// # Port 4326
//
// The default port references EPSG:4326, the geographic coordinate
// system AIS positions are reported in.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tidewatch/tidewatch/internal/ais"
	"github.com/tidewatch/tidewatch/internal/api"
	"github.com/tidewatch/tidewatch/internal/cache"
	"github.com/tidewatch/tidewatch/internal/config"
	"github.com/tidewatch/tidewatch/internal/logging"
	"github.com/tidewatch/tidewatch/internal/ports"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Default logger; config (and its logging section) is not available.
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("feed_url", cfg.Upstream.URL).
		Bool("feed_key_configured", cfg.Upstream.APIKey != "").
		Msg("starting Tidewatch position server")

	if cfg.Upstream.APIKey == "" {
		logging.Warn().Msg("no feed API key configured; position fetches will fail until AISSTREAM_API_KEY is set")
	}

	positionCache := cache.New(cfg.Cache.SweepInterval)
	defer positionCache.Stop()

	svc := ais.NewService(ais.Options{
		URL:               cfg.Upstream.URL,
		APIKey:            cfg.Upstream.APIKey,
		DefaultTimeout:    cfg.Fetch.Timeout,
		DefaultMaxRecords: cfg.Fetch.MaxRecords,
		DialsPerMinute:    cfg.Upstream.DialsPerMinute,
	}, positionCache)

	portDir := ports.NewCachedDirectory(
		ports.NewInMemoryDirectory(ports.SeedPorts()),
		positionCache,
	)

	handler := api.NewHandler(svc, positionCache, portDir)
	router := api.NewRouter(handler, api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.API.CORSOrigins,
		RateLimitRequests:  cfg.API.RateLimitRequests,
		RateLimitWindow:    cfg.API.RateLimitWindow,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logging.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}

	logging.Info().Msg("shutdown complete")
}
