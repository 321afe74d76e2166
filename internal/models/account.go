// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package models

// User is a row of the users table.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
}

// Credentials is the body of POST /api/signup and POST /api/login.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned by a successful signup or login.
type TokenResponse struct {
	Token string `json:"token"`
}

// ErrorBody is the plain {"error": message} body used by the pin and
// account endpoints.
type ErrorBody struct {
	Error string `json:"error"`
}
