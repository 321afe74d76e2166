// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package services

import (
	"context"
	"fmt"
)

// Subscriber is satisfied by *websocket.Relay.
type Subscriber interface {
	Serve(ctx context.Context) error
}

// RelayService keeps the cross-instance relay subscribed. A subscription
// error ends Serve so suture can resubscribe after its backoff.
type RelayService struct {
	relay Subscriber
	name  string
}

// NewRelayService wraps relay.
func NewRelayService(relay Subscriber) *RelayService {
	return &RelayService{relay: relay, name: "nats-relay"}
}

// Serve implements suture.Service.
func (s *RelayService) Serve(ctx context.Context) error {
	err := s.relay.Serve(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("relay failed: %w", err)
	}
	return nil
}

// String implements fmt.Stringer for suture logs.
func (s *RelayService) String() string {
	return s.name
}
