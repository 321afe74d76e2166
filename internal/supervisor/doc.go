// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

/*
Package supervisor runs GeoClover's long-lived services under a suture v4
tree.

	root ("geoclover")
	├── realtime-layer
	│   ├── HubService
	│   └── RelayService (when NATS is enabled)
	├── replication-layer
	│   └── DrainService
	└── api-layer
	    └── HTTPServerService

A service that returns an error is restarted with backoff. A failure in one
layer does not restart the others: a dropped NATS subscription leaves the
HTTP server and local broadcasts running.

Supervisor events are logged through sutureslog with the zerolog-backed
slog handler from the logging package.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddRealtimeService(services.NewHubService(hub))
	tree.AddReplicationService(services.NewDrainService(dispatcher, 8*time.Second))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
