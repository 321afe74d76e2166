// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package arcgis

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/metrics"
)

// cacheExpiryDelta is how long before expiry a cached token is considered stale.
const cacheExpiryDelta = time.Minute

// AccessToken is a bearer credential for the feature layer.
type AccessToken struct {
	Value  string
	Expiry time.Time
}

// CredentialAcquirer obtains access tokens.
type CredentialAcquirer interface {
	AcquireToken(ctx context.Context) (AccessToken, error)
}

// CredentialsConfig configures ClientCredentials.
type CredentialsConfig struct {
	TokenURL          string
	ClientID          string
	ClientSecret      string
	ExpirationMinutes int

	// Cache reuses a token until shortly before expiry. When false every
	// AcquireToken call performs a token request.
	Cache bool

	// HTTPClient defaults to a client with no timeout.
	HTTPClient *http.Client
}

// ClientCredentials performs the OAuth2 client-credentials exchange against
// the ArcGIS token endpoint.
type ClientCredentials struct {
	cfg        clientcredentials.Config
	httpClient *http.Client

	// cache is nil unless caching is enabled.
	mu    sync.Mutex
	cache oauth2.TokenSource
	last  *oauth2.Token
}

// NewClientCredentials builds an acquirer. The request carries client_id,
// client_secret, grant_type=client_credentials, expiration and f=json as
// form parameters.
func NewClientCredentials(c CredentialsConfig) *ClientCredentials {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	cc := &ClientCredentials{
		cfg: clientcredentials.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			TokenURL:     c.TokenURL,
			EndpointParams: url.Values{
				"expiration": {strconv.Itoa(c.ExpirationMinutes)},
				"f":          {"json"},
			},
			AuthStyle: oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
	}

	if c.Cache {
		source := cc.cfg.TokenSource(cc.withHTTPClient(context.Background()))
		cc.cache = oauth2.ReuseTokenSourceWithExpiry(nil, source, cacheExpiryDelta)
	}
	return cc
}

func (c *ClientCredentials) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// AcquireToken returns a bearer token. Network failures, non-2xx responses
// and responses without access_token all come back as *TokenError.
func (c *ClientCredentials) AcquireToken(ctx context.Context) (AccessToken, error) {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" || c.cfg.TokenURL == "" {
		metrics.RecordTokenRequest(metrics.TokenOutcomeFailed)
		return AccessToken{}, &TokenError{Err: ErrNotConfigured}
	}

	if c.cache != nil {
		return c.cachedToken(ctx)
	}

	tok, err := c.cfg.Token(c.withHTTPClient(ctx))
	if err != nil {
		metrics.RecordTokenRequest(metrics.TokenOutcomeFailed)
		logging.Ctx(ctx).Error().Err(err).Msg("failed to acquire ArcGIS token")
		return AccessToken{}, &TokenError{Err: err}
	}

	metrics.RecordTokenRequest(metrics.TokenOutcomeFetched)
	return AccessToken{Value: tok.AccessToken, Expiry: tok.Expiry}, nil
}

// cachedToken serves from the reuse source. The source itself ignores ctx,
// so an already canceled caller is rejected up front.
func (c *ClientCredentials) cachedToken(ctx context.Context) (AccessToken, error) {
	if err := ctx.Err(); err != nil {
		metrics.RecordTokenRequest(metrics.TokenOutcomeFailed)
		return AccessToken{}, &TokenError{Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tok, err := c.cache.Token()
	if err != nil {
		metrics.RecordTokenRequest(metrics.TokenOutcomeFailed)
		logging.Ctx(ctx).Error().Err(err).Msg("failed to acquire ArcGIS token")
		return AccessToken{}, &TokenError{Err: err}
	}

	if tok == c.last {
		metrics.RecordTokenRequest(metrics.TokenOutcomeCached)
	} else {
		metrics.RecordTokenRequest(metrics.TokenOutcomeFetched)
		c.last = tok
	}
	return AccessToken{Value: tok.AccessToken, Expiry: tok.Expiry}, nil
}
