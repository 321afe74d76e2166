// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

// Package validation wraps go-playground/validator v10 for request bodies.
//
// Only the account endpoints validate their input. Pin submissions are
// accepted as-is and never pass through this package.
//
//	var creds models.Credentials
//	if verr := validation.ValidateStruct(&creds); verr != nil {
//	    // verr.Fields() lists the failing JSON field names
//	}
package validation
