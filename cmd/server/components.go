// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/tomtom215/geoclover/internal/accounts"
	"github.com/tomtom215/geoclover/internal/api"
	"github.com/tomtom215/geoclover/internal/arcgis"
	"github.com/tomtom215/geoclover/internal/config"
	"github.com/tomtom215/geoclover/internal/ingest"
	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/replication"
	"github.com/tomtom215/geoclover/internal/websocket"
)

// replicationComponents is everything on the ArcGIS side of the bridge.
type replicationComponents struct {
	breaker    *arcgis.Breaker
	journal    *replication.Journal
	replicator *replication.Replicator
	dispatcher *replication.Dispatcher
}

func newReplicationComponents(cfg *config.Config) (*replicationComponents, error) {
	httpClient := &http.Client{Timeout: cfg.ArcGIS.RequestTimeout}

	credentials := arcgis.NewClientCredentials(arcgis.CredentialsConfig{
		TokenURL:          cfg.ArcGIS.TokenURL,
		ClientID:          cfg.ArcGIS.ClientID,
		ClientSecret:      cfg.ArcGIS.ClientSecret,
		ExpirationMinutes: cfg.ArcGIS.TokenExpirationMinutes,
		Cache:             cfg.ArcGIS.TokenCache,
		HTTPClient:        httpClient,
	})

	c := &replicationComponents{}
	if cfg.ArcGIS.BreakerEnabled {
		c.breaker = arcgis.NewBreaker(arcgis.BreakerSettings{})
		logging.Info().Msg("ArcGIS circuit breaker enabled")
	}
	layer := arcgis.NewFeatureLayer(cfg.ArcGIS.LayerURL, httpClient, c.breaker)

	var opts []replication.Option
	if cfg.Replication.JournalEnabled {
		journal, err := replication.OpenJournal(cfg.Replication.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("open replication journal: %w", err)
		}
		c.journal = journal
		opts = append(opts, replication.WithStore(journal))
		logging.Info().Str("path", cfg.Replication.JournalPath).Msg("Replication journal enabled")
	}

	if !cfg.ArcGIS.Configured() {
		logging.Warn().Msg("ArcGIS credentials or layer URL not set; every replication will fail until configured")
	}
	if cfg.ArcGIS.TokenCache {
		logging.Info().Msg("ArcGIS token caching enabled")
	}

	c.replicator = replication.NewReplicator(credentials, layer, opts...)
	c.dispatcher = replication.NewDispatcher(c.replicator, cfg.Replication.MaxInFlight)
	return c, nil
}

func (c *replicationComponents) breakerStatus() api.BreakerStatus {
	if c.breaker == nil {
		return nil
	}
	return c.breaker
}

// Close releases the journal. Call it after the dispatcher has drained.
func (c *replicationComponents) Close() {
	if c.journal == nil {
		return
	}
	if err := c.journal.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing replication journal")
	}
}

// realtimeComponents is the hub, the optional relay and the ingest gateway
// that feeds them.
type realtimeComponents struct {
	hub           *websocket.Hub
	relay         *websocket.Relay
	gateway       *ingest.Gateway
	clientOptions websocket.ClientOptions
}

func newRealtimeComponents(cfg *config.Config, repl *replicationComponents) (*realtimeComponents, error) {
	c := &realtimeComponents{hub: websocket.NewHub()}

	var publisher ingest.Publisher
	if cfg.NATS.Enabled {
		nc, err := websocket.DialNATS(cfg.NATS.URL)
		if err != nil {
			return nil, err
		}
		c.relay = websocket.NewRelay(c.hub, nc, cfg.NATS.Subject)
		publisher = c.relay
		logging.Info().Str("url", cfg.NATS.URL).Str("subject", cfg.NATS.Subject).Str("origin", c.relay.Origin()).Msg("NATS relay enabled")
	}

	c.gateway = ingest.NewGateway(c.hub, publisher, repl.replicator, repl.dispatcher)
	c.clientOptions = websocket.ClientOptions{
		MessagesPerSecond: cfg.WebSocket.MessagesPerSecond,
		Burst:             cfg.WebSocket.MessageBurst,
	}
	return c, nil
}

func (c *realtimeComponents) relayStatus() api.RelayStatus {
	if c.relay == nil {
		return nil
	}
	return c.relay
}

// Close drains the NATS connection.
func (c *realtimeComponents) Close() {
	if c.relay == nil {
		return
	}
	if err := c.relay.Close(); err != nil {
		logging.Warn().Err(err).Msg("Error draining NATS relay")
	}
}

// accountComponents is the optional account directory.
type accountComponents struct {
	db  *sql.DB
	svc *accounts.Service
}

func newAccountComponents(ctx context.Context, cfg *config.Config) (*accountComponents, error) {
	c := &accountComponents{}
	if !cfg.Database.Enabled() {
		logging.Info().Msg("DATABASE_URL not set; signup and login are disabled")
		return c, nil
	}

	db, err := accounts.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		return nil, err
	}
	if err := accounts.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	c.db = db
	c.svc = accounts.NewService(accounts.NewPostgresRepository(db), []byte(cfg.Security.JWTSecret), cfg.Security.SessionTimeout)
	logging.Info().Msg("Account store connected")
	return c, nil
}

func (c *accountComponents) service() api.AccountService {
	if c.svc == nil {
		return nil
	}
	return c.svc
}

func (c *accountComponents) pinger() api.Pinger {
	if c.db == nil {
		return nil
	}
	return c.db
}

// Close closes the database pool.
func (c *accountComponents) Close() {
	if c.db == nil {
		return
	}
	if err := c.db.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing account store")
	}
}
