// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

/*
Package services adapts GeoClover components to suture.Service.

Each wrapper turns a component's lifecycle into Serve(ctx) error and names
itself through fmt.Stringer for supervisor logs:

  - HubService: websocket.Hub dispatch loop
  - RelayService: NATS subscription that rebroadcasts remote pins
  - HTTPServerService: *http.Server with graceful shutdown
  - DrainService: waits for background replications on shutdown

Serve returns ctx.Err() on a requested stop and a wrapped error on failure,
which suture answers with a restart.
*/
package services
