// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/auth"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
	syncpkg "github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/sync"
)

func TestHealthz(t *testing.T) {
	t.Parallel()

	handler := NewHandler(testHandlerConfig(), &fakeSessionController{}, &fakeConnectivity{}, &fakeSyncController{}, &fakeStoreReader{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handler.Healthz(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Alive         bool    `json:"alive"`
			UptimeSeconds float64 `json:"uptime_seconds"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if !response.Success {
		t.Error("Expected Success to be true")
	}
	if !response.Data.Alive {
		t.Error("Expected alive to be true")
	}
	if response.Data.UptimeSeconds < 0 {
		t.Errorf("Expected non-negative uptime, got %f", response.Data.UptimeSeconds)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	t.Parallel()

	handler := NewHandler(testHandlerConfig(), &fakeSessionController{}, &fakeConnectivity{}, &fakeSyncController{ready: false}, &fakeStoreReader{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	handler.Readyz(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Error == nil {
		t.Fatal("Expected Error to not be nil")
	}
	if response.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("Expected code %s, got %s", ErrCodeServiceUnavailable, response.Error.Code)
	}
}

func TestReadyz_Ready(t *testing.T) {
	t.Parallel()

	handler := NewHandler(testHandlerConfig(), &fakeSessionController{}, &fakeConnectivity{}, &fakeSyncController{ready: true}, &fakeStoreReader{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	handler.Readyz(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Data struct {
			Ready bool `json:"ready"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if !response.Data.Ready {
		t.Error("Expected ready to be true")
	}
}

func TestStatus_FullSnapshot(t *testing.T) {
	t.Parallel()

	expiry := time.Now().Add(45 * time.Minute).UTC().Truncate(time.Second)
	lastSync := time.Now().Add(-10 * time.Minute).UTC().Truncate(time.Second)

	session := &fakeSessionController{
		state:     auth.StateAuthenticated,
		expiry:    expiry,
		hasExpiry: true,
	}
	monitor := &fakeConnectivity{online: true, reachable: true}
	syncCtl := &fakeSyncController{
		ready:    true,
		syncing:  false,
		lastSync: lastSync,
		last: &syncpkg.Result{
			Stage:  "full",
			Status: "completed",
			Counts: map[string]int{"sections": 3, "events": 12},
		},
	}
	storeReader := &fakeStoreReader{
		backend: "duckdb",
		stats: &models.StoreStats{
			Backend:  "duckdb",
			Sections: 3,
			Events:   12,
		},
	}

	cfg := testHandlerConfig()
	cfg.App.DemoMode = true

	handler := NewHandler(cfg, session, monitor, syncCtl, storeReader, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	handler.Status(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Success bool           `json:"success"`
		Data    StatusSnapshot `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	snap := response.Data

	if snap.Auth.State != string(auth.StateAuthenticated) {
		t.Errorf("Auth.State = %q, want %q", snap.Auth.State, auth.StateAuthenticated)
	}
	if snap.Auth.TokenExpiresAt == nil || !snap.Auth.TokenExpiresAt.Equal(expiry) {
		t.Errorf("Auth.TokenExpiresAt = %v, want %v", snap.Auth.TokenExpiresAt, expiry)
	}

	if !snap.Connectivity.Online || !snap.Connectivity.APIReachable || !snap.Connectivity.Effective {
		t.Errorf("Connectivity = %+v, want all true", snap.Connectivity)
	}

	if !snap.Sync.Ready {
		t.Error("Expected Sync.Ready to be true")
	}
	if snap.Sync.LastSync == nil || !snap.Sync.LastSync.Equal(lastSync) {
		t.Errorf("Sync.LastSync = %v, want %v", snap.Sync.LastSync, lastSync)
	}
	if snap.Sync.LastResult == nil || snap.Sync.LastResult.Stage != "full" {
		t.Errorf("Sync.LastResult = %+v, want stage full", snap.Sync.LastResult)
	}
	if snap.Sync.LastResult.Counts["events"] != 12 {
		t.Errorf("LastResult.Counts[events] = %d, want 12", snap.Sync.LastResult.Counts["events"])
	}

	if snap.Store.Backend != "duckdb" {
		t.Errorf("Store.Backend = %q, want duckdb", snap.Store.Backend)
	}
	if snap.Store.Stats == nil || snap.Store.Stats.Sections != 3 {
		t.Errorf("Store.Stats = %+v, want 3 sections", snap.Store.Stats)
	}

	if snap.Version != "1.2.3" {
		t.Errorf("Version = %q, want 1.2.3", snap.Version)
	}
	if !snap.DemoMode {
		t.Error("Expected DemoMode to be true")
	}
	if snap.Uptime < 0 {
		t.Errorf("Uptime = %f, want non-negative", snap.Uptime)
	}
}

func TestStatus_ColdDaemon(t *testing.T) {
	t.Parallel()

	// No token, never synced, stats unavailable: the endpoint still
	// answers with what it has.
	handler := NewHandler(
		testHandlerConfig(),
		&fakeSessionController{state: auth.StateUnauthenticated},
		&fakeConnectivity{},
		&fakeSyncController{},
		&fakeStoreReader{backend: "badger", statsErr: errors.New("store closed")},
		nil,
	)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	handler.Status(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Data StatusSnapshot `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	snap := response.Data

	if snap.Auth.State != string(auth.StateUnauthenticated) {
		t.Errorf("Auth.State = %q, want %q", snap.Auth.State, auth.StateUnauthenticated)
	}
	if snap.Auth.TokenExpiresAt != nil {
		t.Error("Expected no token expiry before login")
	}
	if snap.Sync.LastSync != nil {
		t.Error("Expected no last sync before the first run")
	}
	if snap.Store.Backend != "badger" {
		t.Errorf("Store.Backend = %q, want badger", snap.Store.Backend)
	}
	if snap.Store.Stats != nil {
		t.Error("Expected Stats to be omitted when the store errors")
	}
}
