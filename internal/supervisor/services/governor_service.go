// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package services

import (
	"context"
)

// GovernorRunner interface matches the governor's blocking dispatch loop.
//
// The interface is satisfied by *governor.Governor from
// internal/governor/governor.go:
//   - Run(ctx context.Context) error
type GovernorRunner interface {
	Run(ctx context.Context) error
}

// GovernorService wraps the request governor as a supervised service.
//
// The governor's Run method already implements the suture.Service
// pattern, so this wrapper simply delegates to it and provides a name
// for logging. When Run returns, any work still queued has been failed
// out, so a restart starts from an empty queue.
//
// Example usage:
//
//	gov := governor.New(cfg.Governor, cfg.API, session, session)
//	svc := services.NewGovernorService(gov)
//	tree.AddUpstreamService(svc)
type GovernorService struct {
	governor GovernorRunner
	name     string
}

// NewGovernorService creates a new governor service wrapper.
func NewGovernorService(governor GovernorRunner) *GovernorService {
	return &GovernorService{
		governor: governor,
		name:     "governor",
	}
}

// Serve implements suture.Service.
//
// This method delegates to governor.Run which:
//  1. Dispatches queued upstream requests under the rate policy
//  2. Returns when the context is canceled
//  3. Fails pending requests on the way out
//
// The method returns ctx.Err() on normal shutdown.
func (g *GovernorService) Serve(ctx context.Context) error {
	return g.governor.Run(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (g *GovernorService) String() string {
	return g.name
}
