// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/geoclover/internal/logging"
)

// Waiter is satisfied by *replication.Dispatcher.
type Waiter interface {
	Wait(ctx context.Context) error
}

// DrainService idles until shutdown, then gives in-flight background
// replications up to timeout to finish. Replications still running after
// that are abandoned and logged.
type DrainService struct {
	waiter  Waiter
	timeout time.Duration
	name    string
}

// NewDrainService wraps waiter. A non-positive timeout becomes 10s.
func NewDrainService(waiter Waiter, timeout time.Duration) *DrainService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DrainService{waiter: waiter, timeout: timeout, name: "replication-drain"}
}

// Serve implements suture.Service.
func (d *DrainService) Serve(ctx context.Context) error {
	<-ctx.Done()

	drainCtx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.waiter.Wait(drainCtx); err != nil {
		logging.Warn().Err(err).Dur("timeout", d.timeout).Msg("background replications still running at shutdown")
		return fmt.Errorf("replication drain: %w", err)
	}
	logging.Info().Msg("background replications drained")
	return ctx.Err()
}

// String implements fmt.Stringer for suture logs.
func (d *DrainService) String() string {
	return d.name
}
