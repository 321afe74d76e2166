// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package models

import "time"

// APIResponse is the standard envelope for operational endpoints (health,
// replication journal).
//
//	{"status":"success","data":{...},"metadata":{"timestamp":"2026-01-02T15:04:05Z"}}
//	{"status":"error","error":{"code":"NOT_FOUND","message":"..."},"metadata":{...}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response generation details.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is returned by GET /api/health.
type HealthStatus struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	ConnectedClients int    `json:"connected_clients"`
	Accounts         string `json:"accounts"`
	Replication      string `json:"replication"`
	CircuitBreaker   string `json:"circuit_breaker"`
	RelayConnected   *bool  `json:"relay_connected,omitempty"`
	Uptime           string `json:"uptime"`
}
