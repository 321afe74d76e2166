// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

// Package main is the GeoClover server.
//
// GeoClover accepts map pins over a WebSocket channel and a REST endpoint,
// broadcasts each pin to every connected viewer, and mirrors it into an
// ArcGIS feature layer using a client-credentials token.
//
// Startup order:
//
//  1. Configuration (koanf: defaults, optional YAML, environment)
//  2. Logging
//  3. Replication: token acquirer, feature layer (optionally behind a
//     circuit breaker), optional failure journal, background dispatcher
//  4. Realtime: hub and, when NATS_ENABLED, the cross-instance relay
//  5. Accounts, when DATABASE_URL is set (migrations run at startup)
//  6. HTTP router and server
//  7. Supervisor tree; blocks until SIGINT or SIGTERM
//
// Minimal run:
//
//	export FRONTEND_URL=http://localhost:5173
//	export ARCGIS_CLIENT_ID=... ARCGIS_CLIENT_SECRET=...
//	export ARCGIS_LAYER_URL=https://services.arcgis.com/.../FeatureServer/0/applyEdits
//	./geoclover
//
// Without ArcGIS settings the server still runs: pins are broadcast and each
// replication attempt fails with a logged credential error.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/geoclover/internal/api"
	"github.com/tomtom215/geoclover/internal/config"
	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/supervisor"
	"github.com/tomtom215/geoclover/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout = 10 * time.Second
	// drainTimeout stays under shutdownTimeout so suture does not report
	// the drain service as unstopped.
	drainTimeout = 8 * time.Second
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("GeoClover stopped with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Bool("arcgis_configured", cfg.ArcGIS.Configured()).
		Bool("accounts_enabled", cfg.Database.Enabled()).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting GeoClover")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repl, err := newReplicationComponents(cfg)
	if err != nil {
		return err
	}
	defer repl.Close()

	rt, err := newRealtimeComponents(cfg, repl)
	if err != nil {
		return err
	}
	defer rt.Close()

	acct, err := newAccountComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer acct.Close()

	handler := api.NewHandler(api.HandlerConfig{
		Hub:                   rt.hub,
		Pins:                  rt.gateway,
		Inbound:               rt.gateway,
		Accounts:              acct.service(),
		Journal:               repl.replicator,
		Database:              acct.pinger(),
		Relay:                 rt.relayStatus(),
		Breaker:               repl.breakerStatus(),
		ClientOptions:         rt.clientOptions,
		BaseContext:           ctx,
		AllowedOrigins:        cfg.Security.CORSOrigins,
		ReplicationConfigured: cfg.ArcGIS.Configured(),
		Version:               version,
	})

	router := api.NewRouter(handler, &api.ChiMiddlewareConfig{
		CORSAllowedOrigins:   cfg.Security.CORSOrigins,
		CORSAllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		CORSAllowCredentials: true,
		CORSMaxAge:           86400,
		RateLimitRequests:    cfg.Security.RateLimitReqs,
		RateLimitWindow:      cfg.Security.RateLimitWindow,
		RateLimitDisabled:    cfg.Security.RateLimitDisabled,
	})

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	// WriteTimeout stays zero: POST /api/pins waits on the feature layer,
	// which has no timeout unless ARCGIS_REQUEST_TIMEOUT is set.

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  shutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddRealtimeService(services.NewHubService(rt.hub))
	if rt.relay != nil {
		tree.AddRealtimeService(services.NewRelayService(rt.relay))
	}
	tree.AddReplicationService(services.NewDrainService(repl.dispatcher, drainTimeout))
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))

	err = tree.Serve(ctx)

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop in time")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	logging.Info().Msg("GeoClover stopped")
	return nil
}
