// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package websocket

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/metrics"
)

// relayEnvelope is the NATS message body. Origin identifies the publishing
// instance so it can skip its own messages.
type relayEnvelope struct {
	Origin string          `json:"origin"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// Relay extends hub fan-out across bridge instances. Locally originated
// events are published to a NATS subject; events published by other instances
// are rebroadcast to this instance's clients only.
type Relay struct {
	hub     *Hub
	nc      *nats.Conn
	subject string
	origin  string
}

// DialNATS connects to url, retrying in the background if the server is not
// yet reachable.
func DialNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("geoclover-relay"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS relay disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Info().Str("url", c.ConnectedUrl()).Msg("NATS relay reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NewRelay creates a relay for hub over nc.
func NewRelay(hub *Hub, nc *nats.Conn, subject string) *Relay {
	return &Relay{
		hub:     hub,
		nc:      nc,
		subject: subject,
		origin:  uuid.New().String(),
	}
}

// Origin is this instance's relay identity.
func (r *Relay) Origin() string {
	return r.origin
}

// Connected reports whether the NATS connection is up.
func (r *Relay) Connected() bool {
	return r.nc != nil && r.nc.IsConnected()
}

// Publish sends a locally originated event to the other instances.
func (r *Relay) Publish(_ context.Context, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode relay payload: %w", err)
	}
	body, err := json.Marshal(relayEnvelope{Origin: r.origin, Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("encode relay envelope: %w", err)
	}
	if err := r.nc.Publish(r.subject, body); err != nil {
		return fmt.Errorf("publish to %s: %w", r.subject, err)
	}
	metrics.RelayMessages.WithLabelValues("published").Inc()
	return nil
}

// Serve subscribes to the relay subject and rebroadcasts remote events until
// ctx is canceled.
func (r *Relay) Serve(ctx context.Context) error {
	msgs := make(chan *nats.Msg, 256)
	sub, err := r.nc.ChanSubscribe(r.subject, msgs)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.subject, err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil && r.nc.IsConnected() {
			logging.Warn().Err(err).Msg("failed to unsubscribe NATS relay")
		}
	}()

	logging.Info().Str("subject", r.subject).Str("origin", r.origin).Msg("NATS relay started")

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("subject", r.subject).Msg("NATS relay stopped")
			return ctx.Err()
		case msg := <-msgs:
			r.handleMessage(ctx, msg.Data)
		}
	}
}

func (r *Relay) handleMessage(ctx context.Context, data []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		logging.Warn().Err(err).Msg("failed to decode relay message")
		return
	}
	if env.Origin == r.origin {
		metrics.RelayMessages.WithLabelValues("skipped").Inc()
		return
	}
	// Only pins cross instances; anything else on the subject is dropped.
	if env.Event != EventAddPin {
		metrics.RelayMessages.WithLabelValues("rejected").Inc()
		logging.Warn().Str("event", env.Event).Str("origin", env.Origin).Msg("dropping relayed event of unexpected type")
		return
	}

	metrics.RelayMessages.WithLabelValues("received").Inc()
	if _, err := r.hub.Broadcast(ctx, env.Event, env.Data); err != nil {
		logging.Warn().Err(err).Str("event", env.Event).Msg("failed to rebroadcast relayed event")
	}
}

// Close drains the NATS connection.
func (r *Relay) Close() error {
	if r.nc == nil {
		return nil
	}
	return r.nc.Drain()
}
