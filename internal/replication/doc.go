// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

/*
Package replication mirrors pins into the ArcGIS feature layer.

Replicator.Replicate is the failure boundary: it acquires a token, builds
the applyEdits add for the pin, submits it, and turns every outcome,
including a panic, into either the layer's response body or a *Failure.
Nothing escapes it.

Dispatcher runs Replicate in the background for the realtime entry point.
The caller never waits, and the outcome is only logged. An optional
semaphore caps how many replications are in flight.

Journal is an optional Badger-backed record of failed replications so an
operator can inspect and resubmit them. Nothing is retried automatically.
*/
package replication
