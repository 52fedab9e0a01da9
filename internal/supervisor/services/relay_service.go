// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package services

import (
	"context"
	"fmt"
)

// StartStopRelay interface matches the bus relay's lifecycle.
//
// The interface is satisfied by *websocket.Relay from
// internal/websocket/relay.go:
//   - Start(ctx context.Context) error
//   - Stop()
type StartStopRelay interface {
	Start(ctx context.Context) error
	Stop()
}

// RelayService wraps the bus-to-hub relay as a supervised service.
//
// It adapts the Start/Stop lifecycle pattern to suture's Serve pattern:
//  1. Calls Start(ctx) to subscribe and begin forwarding bus events
//  2. Waits for context cancellation
//  3. Calls Stop() to halt forwarding
//
// The relay runs in the same messaging layer as the hub so a hub restart
// restarts the forwarding loop with it.
//
// Example usage:
//
//	relay := websocket.NewRelay(hub, bus)
//	svc := services.NewRelayService(relay)
//	tree.AddMessagingService(svc)
type RelayService struct {
	relay StartStopRelay
	name  string
}

// NewRelayService creates a new bus relay service wrapper.
func NewRelayService(relay StartStopRelay) *RelayService {
	return &RelayService{
		relay: relay,
		name:  "bus-relay",
	}
}

// Serve implements suture.Service.
//
// This method:
//  1. Starts the relay (which spawns its forwarding goroutine)
//  2. Blocks until the context is canceled
//  3. Stops the relay (which waits for the forwarding goroutine to exit)
//
// If Start() fails, the error is returned immediately, causing suture to
// restart the service according to its backoff policy.
func (r *RelayService) Serve(ctx context.Context) error {
	if err := r.relay.Start(ctx); err != nil {
		return fmt.Errorf("bus relay start failed: %w", err)
	}

	// Wait for shutdown signal
	<-ctx.Done()

	r.relay.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (r *RelayService) String() string {
	return r.name
}
