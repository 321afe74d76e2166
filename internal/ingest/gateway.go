// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

// Package ingest accepts pins from the realtime channel and from the REST
// API, broadcasts them, and hands them to replication.
//
// Both entry points broadcast before replicating. They differ in what the
// submitter sees: a realtime submission gets nothing back and its
// replication runs in the background, while a REST submission waits for
// replication and receives its outcome.
package ingest

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/metrics"
	"github.com/tomtom215/geoclover/internal/models"
	"github.com/tomtom215/geoclover/internal/replication"
	"github.com/tomtom215/geoclover/internal/websocket"
)

// Broadcaster fans an event out to connected clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, payload interface{}) (int, error)
}

// Publisher forwards locally originated events to other bridge instances.
type Publisher interface {
	Publish(ctx context.Context, event string, payload interface{}) error
}

// Replicator mirrors a pin and returns the store's response.
type Replicator interface {
	Replicate(ctx context.Context, entrypoint string, pin models.Pin) (json.RawMessage, error)
}

// Dispatcher replicates a pin in the background.
type Dispatcher interface {
	Dispatch(ctx context.Context, entrypoint string, pin models.Pin)
}

// Gateway is the ingest pipeline shared by both entry points.
type Gateway struct {
	hub        Broadcaster
	relay      Publisher
	replicator Replicator
	dispatcher Dispatcher
}

// NewGateway wires the pipeline. relay may be nil.
func NewGateway(hub Broadcaster, relay Publisher, replicator Replicator, dispatcher Dispatcher) *Gateway {
	return &Gateway{
		hub:        hub,
		relay:      relay,
		replicator: replicator,
		dispatcher: dispatcher,
	}
}

var _ websocket.InboundHandler = (*Gateway)(nil)

// HandleNewPin handles a new-pin message. The received payload is broadcast
// as add-pin byte for byte, then replication is started in the background.
// Nothing is sent back to the submitter beyond the broadcast itself.
func (g *Gateway) HandleNewPin(ctx context.Context, source *websocket.Client, payload json.RawMessage) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx)
	metrics.RecordPinReceived(metrics.EntrypointSocket)

	event := log.Info().RawJSON("pin", rawOrNull(payload))
	if source != nil {
		event = event.Uint64("client_id", source.ID())
	}
	event.Msg("Received pin")

	g.broadcast(ctx, payload)

	var p models.PinPayload
	if err := json.Unmarshal(rawOrNull(payload), &p); err != nil {
		metrics.RecordReplication(metrics.EntrypointSocket, metrics.OutcomeUnknownFailure, 0)
		log.Error().Err(err).Msg("pin payload is not an object, skipping replication")
		return
	}

	g.dispatcher.Dispatch(ctx, metrics.EntrypointSocket, p.Pin())
}

// CreatePin handles POST /api/pins. The pin is broadcast first, then
// replicated; the caller receives the replication outcome. A returned error
// is always a *replication.Failure. Replication ignores the caller's
// cancellation, so a client that hangs up does not abort the store call.
func (g *Gateway) CreatePin(ctx context.Context, req models.PinRequest) (json.RawMessage, error) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	metrics.RecordPinReceived(metrics.EntrypointHTTP)

	pin := req.Pin()
	g.broadcast(ctx, pin.Payload())

	return g.replicator.Replicate(context.WithoutCancel(ctx), metrics.EntrypointHTTP, pin)
}

// broadcast delivers an add-pin locally and to other instances. Failures are
// logged only; the caller's pipeline continues either way. The hub call
// ignores the caller's cancellation so a pin already accepted still reaches
// every viewer.
func (g *Gateway) broadcast(ctx context.Context, payload interface{}) {
	bctx := context.WithoutCancel(ctx)

	if n, err := g.hub.Broadcast(bctx, websocket.EventAddPin, payload); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("add-pin broadcast failed")
	} else {
		logging.Ctx(ctx).Debug().Int("clients", n).Msg("add-pin broadcast")
	}

	if g.relay == nil {
		return
	}
	if err := g.relay.Publish(bctx, websocket.EventAddPin, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("add-pin relay publish failed")
	}
}

func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

// FailureMessage is the human-readable message returned to REST callers.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	if replication.KindOf(err) == "" {
		return "unexpected failure: " + err.Error()
	}
	return err.Error()
}
