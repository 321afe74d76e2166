// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

/*
Package models defines the data shapes shared across GeoClover.

Pin is the canonical in-flight record. It is built once by the ingest gateway
from either entry point and handed, unchanged, to the hub and the replicator.
Pins have no identity and are never stored, except as a copy inside a
FailedReplication journal entry kept for operator resubmission.

Wire shapes:

  - PinPayload: realtime channel payload for new-pin and add-pin ({lat, lng, username, imageUrl})
  - PinRequest: POST /api/pins body ({latitude, longitude, username, imageUrl})
  - Credentials, TokenResponse: account endpoint bodies
  - APIResponse, APIError: standard JSON envelope for operational endpoints

All coordinate and attribution fields are pointers. Absent fields are passed
through as absent; no range or presence validation is performed on pins.
*/
package models
