// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

/*
Package api is the HTTP surface of the bridge, routed with chi.

Routes:

	GET    /                                        liveness text
	GET    /ws                                      realtime channel upgrade
	GET    /metrics                                 Prometheus metrics
	GET    /api/health                              component status
	GET    /api/health/live                         liveness probe
	POST   /api/pins                                create a pin (broadcast, then replicate)
	POST   /api/signup                              create an account
	POST   /api/login                               sign in
	GET    /api/replication/failures                list journaled failures
	POST   /api/replication/failures/{id}/resubmit  replicate a journaled pin again
	DELETE /api/replication/failures/{id}           discard a journaled failure

The pin and account endpoints answer with plain bodies, {"token": ...} or
{"error": message}, matching what existing frontends expect. Health and
journal endpoints use the models.APIResponse envelope.

The journal routes exist only when the replication journal is enabled.
*/
package api
