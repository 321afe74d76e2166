// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geoclover/internal/ingest"
	"github.com/tomtom215/geoclover/internal/models"
	"github.com/tomtom215/geoclover/internal/websocket"
)

// maxBodyBytes bounds request bodies on the JSON endpoints.
const maxBodyBytes = 1 << 20

// PinCreator runs the REST ingest path and returns the store's response.
type PinCreator interface {
	CreatePin(ctx context.Context, req models.PinRequest) (json.RawMessage, error)
}

// AccountService signs users up and in.
type AccountService interface {
	Signup(ctx context.Context, creds models.Credentials) (string, error)
	Login(ctx context.Context, creds models.Credentials) (string, error)
}

// ReplicationJournal exposes journaled replication failures to operators.
type ReplicationJournal interface {
	JournalEnabled() bool
	Failures(ctx context.Context) ([]models.FailedReplication, error)
	Resubmit(ctx context.Context, id string) (json.RawMessage, error)
	Discard(ctx context.Context, id string) error
}

// Pinger checks a dependency is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RelayStatus reports the cross-instance relay connection.
type RelayStatus interface {
	Connected() bool
}

// BreakerStatus reports the replication circuit breaker state.
type BreakerStatus interface {
	State() string
}

// HandlerConfig carries the handler's dependencies. Optional components are
// left nil when not configured.
type HandlerConfig struct {
	Hub     *websocket.Hub
	Pins    PinCreator
	Inbound websocket.InboundHandler

	Accounts AccountService
	Journal  ReplicationJournal
	Database Pinger
	Relay    RelayStatus
	Breaker  BreakerStatus

	ClientOptions websocket.ClientOptions

	// BaseContext bounds the lifetime of realtime connections. Request
	// contexts end when the upgrade handler returns.
	BaseContext context.Context

	AllowedOrigins        []string
	ReplicationConfigured bool
	Version               string
}

// Handler serves the HTTP endpoints.
type Handler struct {
	cfg       HandlerConfig
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Inbound != nil {
		cfg.ClientOptions.Handler = cfg.Inbound
	}
	return &Handler{cfg: cfg, startTime: time.Now()}
}

// Root answers the liveness text existing deployments poll.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("🌱 GeoClover backend is live!"))
}

// CreatePin handles POST /api/pins. The pin is broadcast before the call
// waits on replication; the response is the store's body or the failure
// message.
func (h *Handler) CreatePin(w http.ResponseWriter, r *http.Request) {
	var req models.PinRequest
	if !decodeBody(w, r, &req) {
		return
	}

	body, err := h.cfg.Pins.CreatePin(r.Context(), req)
	if err != nil {
		respondPlainError(w, http.StatusInternalServerError, ingest.FailureMessage(err))
		return
	}
	writeRawJSON(w, http.StatusCreated, body)
}

// decodeBody reads an optional JSON body into dst. An empty body leaves dst
// zero. It writes an error response and returns false on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return true
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondPlainError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		respondPlainError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		respondPlainError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
