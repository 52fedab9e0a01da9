// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package main is the entry point for the syncd daemon.
//
// syncd keeps a local copy of a scout group's sections, events, member
// rosters, and attendance in sync with Online Scout Manager, so the field
// app keeps working at a campsite with no signal. It owns the OAuth
// session, rations upstream requests through a rate-limit governor, and
// exposes a loopback HTTP API for the app shell.
//
// # Application Architecture
//
// The daemon runs its components under a Suture v4 supervision tree:
//
//	RootSupervisor ("syncd")
//	├── UpstreamSupervisor ("upstream-layer")
//	│   ├── Connectivity Monitor (reachability probes)
//	│   └── Governor (rate-limited request dispatch)
//	├── MessagingSupervisor ("messaging-layer")
//	│   ├── WebSocket Hub (event stream fan-out)
//	│   ├── Bus Relay (bus to hub forwarding)
//	│   └── Sync Manager (two-stage sync passes)
//	└── APISupervisor ("api-layer")
//	    └── HTTP Server (loopback REST API + /ws)
//
// Component initialization order:
//
//  1. Configuration: Koanf v2 with environment variables and config files
//  2. Logging: zerolog with JSON/console output modes
//  3. Component graph: internal/app wires the store (DuckDB, with Badger
//     fallback), event bus, session, governor, API client, connectivity
//     monitor, page cache, sync manager, and websocket hub
//  4. Supervisor tree: Suture v4 process supervision
//  5. HTTP server: Chi router bound to loopback
//
// The store and the event bus live outside the tree: the App opens and
// closes them exactly once, and the bus closes after the tree stops so
// terminal sync events still reach subscribers.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// Required settings:
//   - API_URL: upstream base URL
//   - OAUTH_CLIENT_ID: OAuth client (not needed with DEMO_MODE=true)
//
// When the config file changes, the log level is re-applied live; other
// settings take effect on the next start.
//
// # Signal Handling
//
// The daemon handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new API connections
//   - Waits for in-flight requests and sync passes to drain (10s timeout)
//   - Closes the event bus and checkpoints the local store
//
// # Example Usage
//
// Against a real upstream:
//
//	export API_URL=https://www.onlinescoutmanager.co.uk
//	export OAUTH_CLIENT_ID=your-client-id
//	export OAUTH_CLIENT_SECRET=your-client-secret
//	./syncd
//
// Browsing bundled demo fixtures without credentials:
//
//	export API_URL=https://demo.invalid
//	export DEMO_MODE=true
//	./syncd
//
// The loopback API binds 127.0.0.1:3917 by default (HTTP_HOST/HTTP_PORT).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/api"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/app"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/supervisor"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/supervisor/services"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().Str("version", cfg.App.Version).Msg("Starting syncd with supervisor tree")

	// The OAuth callback lands on our own loopback server unless the
	// deployment points it elsewhere.
	if cfg.OAuth.RedirectURL == "" {
		cfg.OAuth.RedirectURL = fmt.Sprintf("http://%s:%d/oauth/callback", cfg.Server.Host, cfg.Server.Port)
	}

	logging.Info().
		Str("api_url", cfg.API.BaseURL).
		Str("store_backend", cfg.Store.Backend).
		Str("store_dir", cfg.Store.Dir).
		Bool("demo_mode", cfg.App.DemoMode).
		Msg("Configuration loaded")

	// Wire the component graph. The App owns the store handle, the event
	// bus, the session, and the page cache; its Close releases them in
	// reverse wiring order after the supervisor tree has stopped.
	core, err := app.New(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to wire sync core")
	}
	defer func() {
		if err := core.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing sync core")
		}
	}()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Resolve the starting auth state from what the store holds.
	if err := core.Bootstrap(ctx); err != nil {
		logging.Warn().Err(err).Msg("Session bootstrap failed; starting unauthenticated")
	}

	watchLogLevel()

	// Create structured logger for supervisor using our slog adapter
	// This bridges zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	// Create supervisor tree
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	// Upstream layer services
	tree.AddUpstreamService(services.NewMonitorService(core.Monitor))
	tree.AddUpstreamService(services.NewGovernorService(core.Governor))

	// Messaging layer services
	tree.AddMessagingService(services.NewWebSocketHubService(core.Hub))
	tree.AddMessagingService(services.NewRelayService(core.Relay))
	tree.AddMessagingService(services.NewSyncService(core.Sync))
	logging.Info().Msg("Monitor, governor, hub, relay, and sync manager added to supervisor tree")

	// API layer services
	if cfg.Server.Enabled {
		handler := api.NewHandler(cfg, core.Session, core.Monitor, core.Sync, core.Store, core.Hub)
		mw := api.NewChiMiddlewareFromServer(cfg.Server.CORSOrigins, cfg.Server.RateLimitReqs, cfg.Server.RateLimitWindow)
		router := api.NewRouter(handler, mw)

		server := &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router.Setup(),
			ReadTimeout:  cfg.Server.Timeout,
			WriteTimeout: cfg.Server.Timeout,
			IdleTimeout:  60 * time.Second,
		}

		tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
		logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")
	} else {
		logging.Info().Msg("Loopback HTTP server disabled (HTTP_ENABLED=false)")
	}

	// === START SUPERVISOR TREE ===

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Daemon stopped gracefully")
}

// watchLogLevel watches the config file, if one exists, and re-applies the
// log level on change. Other settings still require a restart.
func watchLogLevel() {
	path := os.Getenv(config.ConfigPathEnvVar)
	if path == "" {
		for _, p := range config.DefaultConfigPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	err := config.WatchConfigFile(path, func() {
		fresh, err := config.Load()
		if err != nil {
			logging.Warn().Err(err).Msg("Config reload failed; keeping current log level")
			return
		}
		logging.SetLevelString(fresh.Logging.Level)
		logging.Info().Str("level", fresh.Logging.Level).Msg("Log level applied from config change")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
		return
	}
	logging.Info().Str("path", path).Msg("Watching config file for log level changes")
}
