// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package services

import (
	"context"
)

// Runner is satisfied by *websocket.Hub.
type Runner interface {
	RunWithContext(ctx context.Context) error
}

// HubService runs the realtime hub's dispatch loop.
type HubService struct {
	hub  Runner
	name string
}

// NewHubService wraps hub.
func NewHubService(hub Runner) *HubService {
	return &HubService{hub: hub, name: "websocket-hub"}
}

// Serve implements suture.Service. The hub closes every client when ctx ends.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture logs.
func (s *HubService) String() string {
	return s.name
}
