// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

/*
Package middleware provides HTTP middleware for the API router.

  - RequestID: honors or assigns X-Request-ID and puts it in the logging context
  - PrometheusMetrics: request count, latency and in-flight gauge by route pattern

Both are chi-compatible (func(http.Handler) http.Handler):

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

The metrics wrapper keeps http.Hijacker and http.Flusher working, so it can
sit in front of the /ws upgrade.
*/
package middleware
