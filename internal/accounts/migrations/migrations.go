// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

// Package migrations embeds the account schema migrations run by goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
