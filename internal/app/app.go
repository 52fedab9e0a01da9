// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package app wires the sync core's components into one object.
//
// Every cross-component dependency is an explicit reference handed out
// here: the governor holds the session, the API client holds the
// governor, the sync manager holds the client, the store, the bus, and
// the page cache. Nothing reaches for a package global, so tests can
// build a partial App with doubles and embedders can host the core
// inside a larger process.
package app

import (
	"context"
	"errors"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/auth"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/cache"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/connectivity"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/events"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/governor"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/osm"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/store"
	syncpkg "github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/sync"
	ws "github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/websocket"
)

// App holds the wired sync core. Fields are exported so the daemon can
// place each component under its supervisor layer and the API handler
// can take the slices it needs.
//
// The App owns the long-lived resources (store handle, event bus,
// session, page cache); Close releases them. The components' goroutines
// are NOT owned here: the monitor, governor, hub, relay, and sync
// manager are started and stopped by whoever supervises them.
type App struct {
	Config *config.Config

	Store    store.Store
	Bus      *events.Bus
	Session  *auth.Manager
	Governor *governor.Governor
	Client   *osm.Client
	Monitor  *connectivity.Monitor
	Pages    *cache.Cache
	Sync     *syncpkg.Manager
	Hub      *ws.Hub
	Relay    *ws.Relay
}

// New builds the full component graph in dependency order. On any
// failure the resources opened so far are released before returning.
func New(cfg *config.Config) (*App, error) {
	st, err := store.Open(cfg.Store, cfg.App.DemoMode)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("backend", st.Backend()).Msg("Local store opened")

	bus := events.NewBus()

	// The session feeds the governor credentials and vetoes writes once
	// the session is gone; the client reports blocked payloads back.
	session := auth.New(cfg.OAuth, cfg.API, st, bus)
	gov := governor.New(cfg.Governor, cfg.API, session, session)
	client := osm.New(gov, session, session)

	monitor := connectivity.New(cfg.Connectivity, client, bus)
	pages := cache.New(cfg.Cache, st, monitor.Effective)
	syncManager := syncpkg.New(cfg, client, st, bus, pages, session)

	hub := ws.NewHub()
	relay := ws.NewRelay(hub, bus)

	return &App{
		Config:   cfg,
		Store:    st,
		Bus:      bus,
		Session:  session,
		Governor: gov,
		Client:   client,
		Monitor:  monitor,
		Pages:    pages,
		Sync:     syncManager,
		Hub:      hub,
		Relay:    relay,
	}, nil
}

// Bootstrap resolves the starting auth state from what the store holds:
// cached data resumes the session offline, an empty store starts
// unauthenticated.
func (a *App) Bootstrap(ctx context.Context) error {
	return a.Session.Bootstrap(ctx)
}

// Ready reports whether the core is serving current data: a dashboard
// sync pass has completed since startup. Before that, reads come from
// whatever an earlier run left in the store.
func (a *App) Ready() bool {
	return a.Sync.Ready()
}

// Close releases the App's long-lived resources in reverse wiring
// order. The bus closes before the store so terminal events drain while
// their subscribers can still read; callers stop the supervised
// components first.
func (a *App) Close() error {
	var errd []error

	if a.Pages != nil {
		a.Pages.Close()
	}
	if a.Session != nil {
		if err := a.Session.Close(); err != nil {
			errd = append(errd, err)
		}
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			errd = append(errd, err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errd = append(errd, err)
		}
	}

	return errors.Join(errd...)
}
