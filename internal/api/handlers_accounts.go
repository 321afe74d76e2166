// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/geoclover/internal/accounts"
	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/models"
)

// Signup handles POST /api/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.credentials(w, r)
	if !ok {
		return
	}

	token, err := h.cfg.Accounts.Signup(r.Context(), creds)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, models.TokenResponse{Token: token})
	case errors.Is(err, accounts.ErrMissingCredentials):
		respondPlainError(w, http.StatusBadRequest, "Username and password required")
	case errors.Is(err, accounts.ErrUsernameTaken):
		respondPlainError(w, http.StatusConflict, "Username taken")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("signup failed")
		respondPlainError(w, http.StatusInternalServerError, "Signup failed")
	}
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.credentials(w, r)
	if !ok {
		return
	}

	token, err := h.cfg.Accounts.Login(r.Context(), creds)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, models.TokenResponse{Token: token})
	case errors.Is(err, accounts.ErrMissingCredentials):
		respondPlainError(w, http.StatusBadRequest, "Username and password required")
	case errors.Is(err, accounts.ErrInvalidCredentials):
		respondPlainError(w, http.StatusUnauthorized, "Invalid username or password")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("login failed")
		respondPlainError(w, http.StatusInternalServerError, "Login failed")
	}
}

func (h *Handler) credentials(w http.ResponseWriter, r *http.Request) (models.Credentials, bool) {
	var creds models.Credentials
	if h.cfg.Accounts == nil {
		respondPlainError(w, http.StatusServiceUnavailable, "Accounts unavailable")
		return creds, false
	}
	if !decodeBody(w, r, &creds) {
		return creds, false
	}
	return creds, true
}
