// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

/*
Package services provides suture.Service wrappers for the daemon's
components.

This package adapts existing components to the suture v4 supervision
model, translating their lifecycle patterns (Start/Stop, Run,
ListenAndServe) into suture's context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (Start/Stop to Serve pattern)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

WebSocket Hub (WebSocketHubService):
  - Wraps websocket.Hub's RunWithContext loop
  - Closes all client connections on shutdown

Bus Relay (RelayService):
  - Wraps websocket.Relay's Start/Stop lifecycle
  - Stops forwarding before the hub closes its clients

Sync Manager (SyncService):
  - Wraps sync.Manager with its Start/Stop lifecycle
  - Stop blocks until in-flight passes have drained

Connectivity Monitor (MonitorService):
  - Wraps connectivity.Monitor's probe loop
  - Start is idempotent; Stop halts the probes

Governor (GovernorService):
  - Wraps the governor's blocking Run dispatcher
  - Queued work is failed out when the dispatcher exits

# Interface Design

Each wrapper declares a minimal interface matching only the lifecycle
methods it calls, so the wrappers never import the packages they wrap
and tests can substitute doubles.
*/
package services
