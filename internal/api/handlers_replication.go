// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/geoclover/internal/ingest"
	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/replication"
)

// ListFailures handles GET /api/replication/failures.
func (h *Handler) ListFailures(w http.ResponseWriter, r *http.Request) {
	entries, err := h.cfg.Journal.Failures(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to read replication journal", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, entries)
}

// ResubmitFailure handles POST /api/replication/failures/{id}/resubmit. The
// entry is replicated synchronously; success answers 200 with the store's body.
func (h *Handler) ResubmitFailure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logging.Ctx(r.Context()).Info().Str("journal_id", sanitizeLogValue(id)).Msg("resubmitting journaled pin")

	body, err := h.cfg.Journal.Resubmit(r.Context(), id)
	switch {
	case err == nil:
		writeRawJSON(w, http.StatusOK, body)
	case errors.Is(err, replication.ErrEntryNotFound):
		respondPlainError(w, http.StatusNotFound, "Journal entry not found")
	case replication.KindOf(err) != "":
		respondPlainError(w, http.StatusBadGateway, ingest.FailureMessage(err))
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("resubmit failed")
		respondPlainError(w, http.StatusInternalServerError, "Failed to read replication journal")
	}
}

// DiscardFailure handles DELETE /api/replication/failures/{id}.
func (h *Handler) DiscardFailure(w http.ResponseWriter, r *http.Request) {
	err := h.cfg.Journal.Discard(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, replication.ErrEntryNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Journal entry not found", nil)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to update replication journal", err)
	}
}
