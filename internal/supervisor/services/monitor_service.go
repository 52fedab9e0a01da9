// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package services

import (
	"context"
	"fmt"
)

// StartStopMonitor interface matches the connectivity monitor's lifecycle.
//
// The interface is satisfied by *connectivity.Monitor from
// internal/connectivity/monitor.go:
//   - Start(ctx context.Context) error
//   - Stop()
type StartStopMonitor interface {
	Start(ctx context.Context) error
	Stop()
}

// MonitorService wraps the connectivity monitor as a supervised service.
//
// It adapts the Start/Stop lifecycle pattern to suture's Serve pattern:
//  1. Calls Start(ctx) to begin the probe loop
//  2. Waits for context cancellation
//  3. Calls Stop() to halt the probes
//
// Example usage:
//
//	monitor := connectivity.New(cfg.Connectivity, client, bus)
//	svc := services.NewMonitorService(monitor)
//	tree.AddUpstreamService(svc)
type MonitorService struct {
	monitor StartStopMonitor
	name    string
}

// NewMonitorService creates a new connectivity monitor service wrapper.
func NewMonitorService(monitor StartStopMonitor) *MonitorService {
	return &MonitorService{
		monitor: monitor,
		name:    "connectivity-monitor",
	}
}

// Serve implements suture.Service.
//
// This method:
//  1. Starts the monitor (which spawns its probe goroutine)
//  2. Blocks until the context is canceled
//  3. Stops the monitor (which waits for the probe goroutine to exit)
//
// If Start() fails, the error is returned immediately, causing suture to
// restart the service according to its backoff policy.
func (m *MonitorService) Serve(ctx context.Context) error {
	if err := m.monitor.Start(ctx); err != nil {
		return fmt.Errorf("connectivity monitor start failed: %w", err)
	}

	// Wait for shutdown signal
	<-ctx.Done()

	m.monitor.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (m *MonitorService) String() string {
	return m.name
}
