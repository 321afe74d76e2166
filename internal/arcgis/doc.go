// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

// Package arcgis talks to the two external ArcGIS endpoints the bridge
// depends on: the OAuth2 token endpoint (client-credentials grant) and a
// feature layer's applyEdits operation.
//
// Neither client panics or retries. Failures come back as *TokenError or
// *EditError so the replicator can classify them.
package arcgis
