// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package api

import (
	"net/http"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
	syncpkg "github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/sync"
)

// StatusSnapshot is the full daemon state returned by /api/v1/status.
type StatusSnapshot struct {
	Auth         AuthStatus         `json:"auth"`
	Connectivity ConnectivityStatus `json:"connectivity"`
	Sync         SyncStatus         `json:"sync"`
	Store        StoreStatus        `json:"store"`
	Version      string             `json:"version"`
	DemoMode     bool               `json:"demo_mode"`
	Uptime       float64            `json:"uptime_seconds"`
}

// AuthStatus reports the session state machine's position.
type AuthStatus struct {
	State          string     `json:"state"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
}

// ConnectivityStatus reports the monitor's flags. Effective is the
// conjunction the rest of the core acts on.
type ConnectivityStatus struct {
	Online       bool `json:"online"`
	APIReachable bool `json:"api_reachable"`
	Effective    bool `json:"effective"`
}

// SyncStatus reports the orchestrator's readiness and last outcome.
type SyncStatus struct {
	Ready      bool            `json:"ready"`
	Syncing    bool            `json:"syncing"`
	LastSync   *time.Time      `json:"last_sync,omitempty"`
	LastResult *syncpkg.Result `json:"last_result,omitempty"`
}

// StoreStatus reports the persistence backend and its row counts.
type StoreStatus struct {
	Backend string             `json:"backend"`
	Stats   *models.StoreStats `json:"stats,omitempty"`
}

// Healthz handles liveness probe requests. It answers 200 whenever the
// process is up, regardless of dependencies.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// Readyz handles readiness probe requests. Ready means the dashboard
// stage of the initial sync has completed, so reads serve real data.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if !h.sync.Ready() {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Initial sync has not completed", nil)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"ready": true,
	})
}

// Status returns the auth, connectivity, sync, and store snapshot the
// UI's diagnostics page renders.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	snapshot := StatusSnapshot{
		Auth: AuthStatus{
			State: string(h.session.State()),
		},
		Connectivity: ConnectivityStatus{
			Online:       h.monitor.IsOnline(),
			APIReachable: h.monitor.APIReachable(),
			Effective:    h.monitor.Effective(),
		},
		Sync: SyncStatus{
			Ready:      h.sync.Ready(),
			Syncing:    h.sync.Syncing(),
			LastResult: h.sync.LastResult(),
		},
		Store: StoreStatus{
			Backend: h.store.Backend(),
		},
		Uptime: time.Since(h.startTime).Seconds(),
	}

	if expiry, ok := h.session.TokenExpiry(); ok {
		snapshot.Auth.TokenExpiresAt = &expiry
	}
	if last := h.sync.LastSyncTime(); !last.IsZero() {
		snapshot.Sync.LastSync = &last
	}

	// A stats failure degrades the snapshot, it does not fail it.
	if stats, err := h.store.Stats(r.Context()); err != nil {
		logging.Warn().Err(err).Msg("Store stats unavailable for status snapshot")
	} else {
		snapshot.Store.Stats = stats
	}

	if h.config != nil {
		snapshot.Version = h.config.App.Version
		snapshot.DemoMode = h.config.App.DemoMode
	}

	respondJSON(w, r, http.StatusOK, snapshot)
}
