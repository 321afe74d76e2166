// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package replication

import (
	"errors"
	"fmt"

	"github.com/tomtom215/geoclover/internal/arcgis"
	"github.com/tomtom215/geoclover/internal/metrics"
)

// Kind classifies a replication failure.
type Kind string

const (
	KindCredentialAcquisition Kind = metrics.OutcomeCredentialFailure
	KindReplication           Kind = metrics.OutcomeReplicationFailure
	KindUnknown               Kind = metrics.OutcomeUnknownFailure
)

// Failure is the only error type Replicate returns.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case KindCredentialAcquisition:
		return fmt.Sprintf("ArcGIS token failed: %v", f.Err)
	case KindReplication:
		return fmt.Sprintf("ArcGIS replication failed: %v", f.Err)
	default:
		return fmt.Sprintf("unexpected replication failure: %v", f.Err)
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// classify maps an error from the arcgis clients onto a Kind.
func classify(err error) *Failure {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}
	var tokenErr *arcgis.TokenError
	if errors.As(err, &tokenErr) {
		return &Failure{Kind: KindCredentialAcquisition, Err: err}
	}
	var editErr *arcgis.EditError
	if errors.As(err, &editErr) {
		return &Failure{Kind: KindReplication, Err: err}
	}
	return &Failure{Kind: KindUnknown, Err: err}
}

// KindOf returns the failure kind of err, or "" if err is not a *Failure.
func KindOf(err error) Kind {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}
	return ""
}
