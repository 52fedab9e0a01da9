// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package websocket

import (
	"context"
	"sync"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/events"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
)

// Relay bridges the in-process event bus to the websocket hub so the
// frontend sees the same stream internal components subscribe to.
type Relay struct {
	hub *Hub
	bus *events.Bus

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRelay wires a bus-to-hub bridge; Start begins forwarding.
func NewRelay(hub *Hub, bus *events.Bus) *Relay {
	return &Relay{
		hub: hub,
		bus: bus,
	}
}

// Start subscribes to every bus kind and forwards envelopes to the hub.
// Calling Start twice is a no-op. The stop channels are remade here so
// a supervised restart begins with a clean pump.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	ch, err := r.bus.Subscribe(ctx)
	if err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return err
	}

	go r.forward(ctx, ch, stopCh, doneCh)
	logging.Info().Msg("Event relay started")
	return nil
}

// Stop halts forwarding and waits for the pump to exit.
func (r *Relay) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)
	<-doneCh
	logging.Info().Msg("Event relay stopped")
}

func (r *Relay) forward(ctx context.Context, ch <-chan events.Event, stopCh chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			r.hub.BroadcastEvent(ev)
		}
	}
}
