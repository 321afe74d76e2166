// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package replication

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/metrics"
	"github.com/tomtom215/geoclover/internal/models"
)

// Replicating is the part of Replicator the dispatcher needs.
type Replicating interface {
	Replicate(ctx context.Context, entrypoint string, pin models.Pin) (json.RawMessage, error)
}

// Dispatcher runs replications in the background.
type Dispatcher struct {
	replicator Replicating
	sem        *semaphore.Weighted
	wg         sync.WaitGroup
}

// NewDispatcher returns a dispatcher. maxInFlight <= 0 leaves concurrency unbounded.
func NewDispatcher(replicator Replicating, maxInFlight int64) *Dispatcher {
	d := &Dispatcher{replicator: replicator}
	if maxInFlight > 0 {
		d.sem = semaphore.NewWeighted(maxInFlight)
	}
	return d
}

// Dispatch starts replicating pin and returns immediately. Cancellation of
// ctx does not stop the replication; only its values are kept. When the
// in-flight cap is reached the spawned goroutine waits for a slot, never the
// caller.
func (d *Dispatcher) Dispatch(ctx context.Context, entrypoint string, pin models.Pin) {
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if d.sem != nil {
			// Background context: Acquire cannot fail.
			_ = d.sem.Acquire(context.Background(), 1)
			defer d.sem.Release(1)
		}

		metrics.TrackReplicationInFlight(true)
		defer metrics.TrackReplicationInFlight(false)

		var pc panics.Catcher
		pc.Try(func() {
			_, _ = d.replicator.Replicate(ctx, entrypoint, pin)
		})
		if recovered := pc.Recovered(); recovered != nil {
			logging.Ctx(ctx).Error().
				Str("panic", fmt.Sprint(recovered.Value)).
				Str("entrypoint", entrypoint).
				Msg("background replication panicked")
		}
	}()
}

// Wait blocks until every dispatched replication has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
