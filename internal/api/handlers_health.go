// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/models"
)

const healthCheckTimeout = 2 * time.Second

// Health reports component status. The bridge keeps accepting pins while
// degraded, so the response is always 200; status carries the verdict.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatus{
		Status:      "healthy",
		Version:     h.cfg.Version,
		Accounts:    "disabled",
		Replication: "unconfigured",
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
	}

	if h.cfg.Hub != nil {
		status.ConnectedClients = h.cfg.Hub.ClientCount()
	}

	if h.cfg.ReplicationConfigured {
		status.Replication = "configured"
		if h.cfg.Journal != nil && h.cfg.Journal.JournalEnabled() {
			status.Replication = "configured, journaled"
		}
	}

	if h.cfg.Breaker != nil {
		status.CircuitBreaker = h.cfg.Breaker.State()
		if status.CircuitBreaker == "open" {
			status.Status = "degraded"
		}
	}

	if h.cfg.Database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := h.cfg.Database.PingContext(ctx)
		cancel()
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("health check: account store unreachable")
			status.Accounts = "unreachable"
			status.Status = "degraded"
		} else {
			status.Accounts = "ok"
		}
	}

	if h.cfg.Relay != nil {
		connected := h.cfg.Relay.Connected()
		status.RelayConnected = &connected
		if !connected {
			status.Status = "degraded"
		}
	}

	respondSuccess(w, r, http.StatusOK, status)
}

// HealthLive is the liveness probe: 200 while the process serves HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]string{"status": "alive"})
}
