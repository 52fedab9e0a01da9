// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/app"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/auth"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		API: config.APIConfig{
			BaseURL: "https://osm.test.invalid",
		},
		OAuth: config.OAuthConfig{
			ClientID:    "test-client",
			FrontendURL: "http://localhost:3000",
		},
		Store: config.StoreConfig{
			Backend:        "badger",
			Dir:            t.TempDir(),
			BadgerGCPeriod: time.Minute,
		},
		Cache: config.CacheConfig{
			StartupTTL:     time.Hour,
			EventsTTL:      time.Hour,
			SectionsTTL:    time.Hour,
			EventDetailTTL: time.Hour,
		},
		Governor: config.GovernorConfig{
			SpacingFloor: 100 * time.Millisecond,
			BatchSize:    3,
			BatchPause:   10 * time.Millisecond,
		},
		Sync: config.SyncConfig{
			WindowPastDays:   7,
			WindowFutureDays: 90,
		},
		Connectivity: config.ConnectivityConfig{
			ProbeInterval:     time.Minute,
			ProbeMaxInterval:  10 * time.Minute,
			BackoffMultiplier: 2,
		},
	}
}

func TestNew_WiresEveryComponent(t *testing.T) {
	core, err := app.New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() {
		if err := core.Close(); err != nil {
			t.Errorf("Close returned error: %v", err)
		}
	}()

	if core.Store == nil || core.Bus == nil || core.Session == nil ||
		core.Governor == nil || core.Client == nil || core.Monitor == nil ||
		core.Pages == nil || core.Sync == nil || core.Hub == nil || core.Relay == nil {
		t.Fatalf("New left components unwired: %+v", core)
	}
	if core.Store.Backend() != "badger" {
		t.Errorf("Expected badger backend, got %q", core.Store.Backend())
	}
}

func TestNew_UnknownBackendFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "bogus"

	if _, err := app.New(cfg); err == nil {
		t.Fatal("Expected error for unknown store backend")
	}
}

func TestApp_NotReadyBeforeFirstSync(t *testing.T) {
	core, err := app.New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = core.Close() }()

	if core.Ready() {
		t.Error("Expected Ready to be false before any sync pass")
	}
}

func TestApp_BootstrapEmptyStoreStartsUnauthenticated(t *testing.T) {
	core, err := app.New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = core.Close() }()

	if err := core.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if got := core.Session.State(); got != auth.StateUnauthenticated {
		t.Errorf("Expected %q after empty-store bootstrap, got %q", auth.StateUnauthenticated, got)
	}
}
