// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

// Package config loads GeoClover configuration.
//
// Loading order (later layers win):
//  1. Defaults from defaultConfig
//  2. Optional YAML file (CONFIG_PATH, then DefaultConfigPaths)
//  3. Environment variables, through the mapping table in envTransformFunc
//
// The bridge is usable with no configuration at all: pins broadcast to
// connected clients and each replication attempt fails with a credential
// error until the ArcGIS settings are supplied.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Security    SecurityConfig    `koanf:"security"`
	ArcGIS      ArcGISConfig      `koanf:"arcgis"`
	Replication ReplicationConfig `koanf:"replication"`
	WebSocket   WebSocketConfig   `koanf:"websocket"`
	Database    DatabaseConfig    `koanf:"database"`
	NATS        NATSConfig        `koanf:"nats"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// IsProduction reports whether the server runs in production mode.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// SecurityConfig holds CORS, rate limiting and session token settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
}

// ArcGISConfig describes the identity provider and the feature layer that
// pins are mirrored into.
type ArcGISConfig struct {
	TokenURL     string `koanf:"token_url"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	LayerURL     string `koanf:"layer_url"`

	// TokenExpirationMinutes is sent as the "expiration" parameter of the
	// client-credentials exchange.
	TokenExpirationMinutes int `koanf:"token_expiration_minutes"`

	// TokenCache reuses a token until shortly before it expires. When false a
	// token is fetched for every replication attempt.
	TokenCache bool `koanf:"token_cache"`

	// RequestTimeout bounds each outbound call. Zero means no timeout.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// BreakerEnabled puts applyEdits behind a circuit breaker. While it is
	// open, replications fail without contacting the layer.
	BreakerEnabled bool `koanf:"breaker_enabled"`
}

// Configured reports whether enough is set to attempt replication.
func (a ArcGISConfig) Configured() bool {
	return a.ClientID != "" && a.ClientSecret != "" && a.LayerURL != ""
}

// ReplicationConfig controls background replication.
type ReplicationConfig struct {
	// MaxInFlight caps concurrent fire-and-forget replications. Zero is unbounded.
	MaxInFlight    int64  `koanf:"max_in_flight"`
	JournalEnabled bool   `koanf:"journal_enabled"`
	JournalPath    string `koanf:"journal_path"`
}

// WebSocketConfig controls the realtime channel.
type WebSocketConfig struct {
	// MessagesPerSecond limits inbound client messages per connection. Zero disables the limit.
	MessagesPerSecond float64 `koanf:"messages_per_second"`
	MessageBurst      int     `koanf:"message_burst"`
}

// DatabaseConfig holds the account store connection.
type DatabaseConfig struct {
	URL string `koanf:"url"`

	// SSLMode is appended as sslmode when the URL does not carry one.
	// Empty follows the environment: require in production, disable otherwise.
	SSLMode string `koanf:"ssl_mode"`
}

// Enabled reports whether the account store is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// NATSConfig controls the optional cross-instance relay.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
