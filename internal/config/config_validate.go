// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/geoclover/internal/logging"
)

// minJWTSecretLength applies only in production.
const minJWTSecretLength = 32

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateArcGIS(); err != nil {
		return err
	}
	if err := c.validateReplication(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Environment {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("ENVIRONMENT must be one of development, staging, production, test; got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Security.RateLimitWindow)
		}
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			continue
		}
		if err := validateHTTPURL(origin, "FRONTEND_URL", false); err != nil {
			return err
		}
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive, got %v", c.Security.SessionTimeout)
	}
	return nil
}

func (c *Config) validateArcGIS() error {
	a := c.ArcGIS
	if err := validateHTTPURL(a.TokenURL, "ARCGIS_TOKEN_URL", true); err != nil {
		return err
	}
	if a.LayerURL != "" {
		if err := validateHTTPURL(a.LayerURL, "ARCGIS_LAYER_URL", true); err != nil {
			return err
		}
	}
	if (a.ClientID == "") != (a.ClientSecret == "") {
		return fmt.Errorf("ARCGIS_CLIENT_ID and ARCGIS_CLIENT_SECRET must be set together")
	}
	if a.TokenExpirationMinutes < 1 {
		return fmt.Errorf("ARCGIS_TOKEN_EXPIRATION must be at least 1 minute, got %d", a.TokenExpirationMinutes)
	}
	if a.RequestTimeout < 0 {
		return fmt.Errorf("ARCGIS_REQUEST_TIMEOUT cannot be negative")
	}
	if !a.Configured() {
		logging.Warn().
			Bool("layer_url_set", a.LayerURL != "").
			Bool("client_id_set", a.ClientID != "").
			Msg("ArcGIS replication is not fully configured; pins will broadcast but replication will fail")
	}
	return nil
}

func (c *Config) validateReplication() error {
	if c.Replication.MaxInFlight < 0 {
		return fmt.Errorf("REPLICATION_MAX_IN_FLIGHT cannot be negative")
	}
	if c.Replication.JournalEnabled && strings.TrimSpace(c.Replication.JournalPath) == "" {
		return fmt.Errorf("REPLICATION_JOURNAL_PATH is required when REPLICATION_JOURNAL_ENABLED=true")
	}
	if c.WebSocket.MessagesPerSecond < 0 {
		return fmt.Errorf("WS_MESSAGES_PER_SECOND cannot be negative")
	}
	if c.WebSocket.MessagesPerSecond > 0 && c.WebSocket.MessageBurst < 1 {
		return fmt.Errorf("WS_MESSAGE_BURST must be at least 1 when WS_MESSAGES_PER_SECOND is set")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if !c.Database.Enabled() {
		return nil
	}
	switch c.Database.SSLMode {
	case "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("DATABASE_SSL_MODE %q is not a valid sslmode", c.Database.SSLMode)
	}
	if c.Server.IsProduction() && len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", minJWTSecretLength)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when DATABASE_URL is set")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	parsed, err := url.Parse(c.NATS.URL)
	if err != nil {
		return fmt.Errorf("NATS_URL failed to parse: %w", err)
	}
	switch parsed.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return fmt.Errorf("NATS_URL scheme must be nats, tls, ws or wss, got: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("NATS_URL host is required")
	}
	if strings.TrimSpace(c.NATS.Subject) == "" {
		return fmt.Errorf("NATS_SUBJECT is required when NATS_ENABLED=true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL checks scheme and host. Endpoint URLs may carry a path;
// origins may not.
func validateHTTPURL(rawURL, fieldName string, allowPath bool) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %q", fieldName, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if !allowPath && parsed.Path != "" && parsed.Path != "/" {
		return fmt.Errorf("%s should be an origin only, remove path: %s", fieldName, parsed.Path)
	}
	return nil
}

// PostgresDSN returns the database URL with sslmode applied.
func (c *Config) PostgresDSN() string {
	dsn := c.Database.URL
	if dsn == "" || strings.Contains(dsn, "sslmode=") {
		return dsn
	}
	mode := c.Database.SSLMode
	if mode == "" {
		mode = "disable"
		if c.Server.IsProduction() {
			mode = "require"
		}
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "sslmode=" + mode
}
