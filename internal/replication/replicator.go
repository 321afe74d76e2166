// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package replication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/sourcegraph/conc/panics"

	"github.com/tomtom215/geoclover/internal/arcgis"
	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/metrics"
	"github.com/tomtom215/geoclover/internal/models"
)

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// ErrJournalDisabled is returned by journal operations when no journal is configured.
var ErrJournalDisabled = errors.New("replication journal disabled")

// FeatureEditor submits feature adds to the layer.
type FeatureEditor interface {
	ApplyEdits(ctx context.Context, token string, adds []arcgis.Feature) (json.RawMessage, error)
}

// Store keeps failed replications for operator resubmission.
type Store interface {
	Record(ctx context.Context, entry models.FailedReplication) (string, error)
	Get(ctx context.Context, id string) (models.FailedReplication, error)
	List(ctx context.Context) ([]models.FailedReplication, error)
	Delete(ctx context.Context, id string) error
}

// Option configures a Replicator.
type Option func(*Replicator)

// WithTimeout bounds each replication attempt. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Replicator) { r.timeout = d }
}

// WithStore journals failed replications.
func WithStore(s Store) Option {
	return func(r *Replicator) { r.store = s }
}

// WithClock overrides the clock used for feature timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Replicator) { r.now = now }
}

// Replicator mirrors pins into the feature layer.
type Replicator struct {
	credentials arcgis.CredentialAcquirer
	layer       FeatureEditor
	store       Store
	timeout     time.Duration
	now         func() time.Time
}

// NewReplicator creates a Replicator.
func NewReplicator(credentials arcgis.CredentialAcquirer, layer FeatureEditor, opts ...Option) *Replicator {
	r := &Replicator{
		credentials: credentials,
		layer:       layer,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JournalEnabled reports whether failures are journaled.
func (r *Replicator) JournalEnabled() bool {
	return r.store != nil
}

// Replicate mirrors pin and returns the layer's response body. Any failure,
// including a panic, is returned as a *Failure. entrypoint labels metrics and
// journal entries.
func (r *Replicator) Replicate(ctx context.Context, entrypoint string, pin models.Pin) (json.RawMessage, error) {
	start := time.Now()

	var body json.RawMessage
	var err error

	var pc panics.Catcher
	pc.Try(func() {
		body, err = r.replicate(ctx, pin)
	})
	if recovered := pc.Recovered(); recovered != nil {
		logging.Ctx(ctx).Error().
			Str("panic", fmt.Sprint(recovered.Value)).
			Str("stack", string(recovered.Stack)).
			Msg("panic during replication")
		body, err = nil, recovered.AsError()
	}

	if err == nil {
		metrics.RecordReplication(entrypoint, metrics.OutcomeSuccess, time.Since(start))
		logging.Ctx(ctx).Info().
			Str("entrypoint", entrypoint).
			RawJSON("response", body).
			Msg("ArcGIS replication succeeded")
		return body, nil
	}

	failure := classify(err)
	metrics.RecordReplication(entrypoint, string(failure.Kind), time.Since(start))
	logging.Ctx(ctx).Error().
		Err(failure.Err).
		Str("entrypoint", entrypoint).
		Str("kind", string(failure.Kind)).
		Msg("ArcGIS replication failed")

	if entrypoint != metrics.EntrypointManual {
		r.journal(ctx, entrypoint, pin, failure)
	}
	return nil, failure
}

func (r *Replicator) replicate(ctx context.Context, pin models.Pin) (json.RawMessage, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	token, err := r.credentials.AcquireToken(ctx)
	if err != nil {
		return nil, &Failure{Kind: KindCredentialAcquisition, Err: err}
	}
	if token.Value == "" {
		return nil, &Failure{Kind: KindCredentialAcquisition, Err: errors.New("empty access token")}
	}

	return r.layer.ApplyEdits(ctx, token.Value, []arcgis.Feature{r.feature(pin)})
}

// feature builds the applyEdits add for pin. The timestamp is taken now,
// at replication time.
func (r *Replicator) feature(pin models.Pin) arcgis.Feature {
	return arcgis.Feature{
		Geometry: arcgis.Geometry{
			X:                orNull(pin.Longitude),
			Y:                orNull(pin.Latitude),
			SpatialReference: arcgis.SpatialReference{WKID: arcgis.WKID4326},
		},
		Attributes: arcgis.Attributes{
			Username:  pin.Username,
			ImageURL:  pin.ImageURL,
			Timestamp: r.now().UTC().Format(timestampLayout),
		},
	}
}

func orNull(v json.RawMessage) json.RawMessage {
	if len(v) == 0 {
		return json.RawMessage("null")
	}
	return v
}

func (r *Replicator) journal(ctx context.Context, entrypoint string, pin models.Pin, failure *Failure) {
	if r.store == nil {
		return
	}
	entry := models.FailedReplication{
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		Entrypoint:    entrypoint,
		Pin:           pin,
		Kind:          string(failure.Kind),
		Error:         failure.Error(),
		FailedAt:      r.now().UTC(),
	}
	id, err := r.store.Record(context.WithoutCancel(ctx), entry)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to journal replication failure")
		return
	}
	logging.Ctx(ctx).Info().Str("journal_id", id).Msg("replication failure journaled")
}

// Failures lists journaled failures, oldest first.
func (r *Replicator) Failures(ctx context.Context) ([]models.FailedReplication, error) {
	if r.store == nil {
		return nil, ErrJournalDisabled
	}
	return r.store.List(ctx)
}

// Discard removes a journaled failure without resubmitting it.
func (r *Replicator) Discard(ctx context.Context, id string) error {
	if r.store == nil {
		return ErrJournalDisabled
	}
	return r.store.Delete(ctx, id)
}

// Resubmit replicates a journaled pin again. The entry is removed on success
// and kept unchanged on failure. Store errors such as ErrEntryNotFound are
// returned as-is; replication failures come back as *Failure.
func (r *Replicator) Resubmit(ctx context.Context, id string) (json.RawMessage, error) {
	if r.store == nil {
		return nil, ErrJournalDisabled
	}

	entry, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if entry.CorrelationID != "" {
		ctx = logging.ContextWithCorrelationID(ctx, entry.CorrelationID)
	}

	body, err := r.Replicate(ctx, metrics.EntrypointManual, entry.Pin)
	if err != nil {
		return nil, err
	}

	if err := r.store.Delete(ctx, id); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("journal_id", id).Msg("resubmitted entry could not be removed from journal")
	}
	return body, nil
}
