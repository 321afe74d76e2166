// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package models

import "time"

// FailedReplication is a journal entry for a pin whose replication failed.
// It lets an operator resubmit the pin; nothing retries it automatically.
type FailedReplication struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Entrypoint    string    `json:"entrypoint"`
	Pin           Pin       `json:"pin"`
	Kind          string    `json:"kind"`
	Error         string    `json:"error"`
	FailedAt      time.Time `json:"failed_at"`
}
