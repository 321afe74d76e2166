// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package arcgis

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when client credentials or the layer URL are missing.
var ErrNotConfigured = errors.New("arcgis: not configured")

// TokenError reports that no usable access token could be obtained.
type TokenError struct {
	Err error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("arcgis token: %v", e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// EditError reports a failed applyEdits call. StatusCode is zero when no HTTP
// response was received.
type EditError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *EditError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("arcgis applyEdits: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("arcgis applyEdits: %v", e.Err)
}

func (e *EditError) Unwrap() error {
	return e.Err
}

// ServiceError is the {"error": {...}} envelope ArcGIS returns, often with HTTP 200.
type ServiceError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error %d: %s", e.Code, e.Message)
}
