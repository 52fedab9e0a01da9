// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/auth"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
	syncpkg "github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/sync"
	ws "github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/websocket"
)

// SyncController is the slice of the sync manager the API consumes.
type SyncController interface {
	Ready() bool
	Syncing() bool
	LastSyncTime() time.Time
	LastResult() *syncpkg.Result
	TriggerSync(ctx context.Context) bool
}

// SessionController is the slice of the auth manager the API consumes.
type SessionController interface {
	State() auth.State
	TokenExpiry() (time.Time, bool)
	BeginLogin(returnPath string) (string, error)
	HandleCallback(ctx context.Context, code, rawState string) (string, error)
}

// ConnectivityReader reports the monitor's current flags.
type ConnectivityReader interface {
	IsOnline() bool
	APIReachable() bool
	Effective() bool
}

// StoreReader is the diagnostic slice of the store.
type StoreReader interface {
	Stats(ctx context.Context) (*models.StoreStats, error)
	Backend() string
}

// Handler contains dependencies for the loopback API handlers.
type Handler struct {
	config    *config.Config
	session   SessionController
	monitor   ConnectivityReader
	sync      SyncController
	store     StoreReader
	hub       *ws.Hub
	startTime time.Time
}

// NewHandler creates the API handler. The hub may be nil when the
// event stream is disabled; /ws then answers 503.
func NewHandler(cfg *config.Config, session SessionController, monitor ConnectivityReader, syncMgr SyncController, store StoreReader, hub *ws.Hub) *Handler {
	return &Handler{
		config:    cfg,
		session:   session,
		monitor:   monitor,
		sync:      syncMgr,
		store:     store,
		hub:       hub,
		startTime: time.Now(),
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout against slow clients.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates connection origins against the
// configured frontend list. Browser websockets always send Origin;
// an empty header means a non-browser client on the loopback, which
// is allowed.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.Server.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", origin).Msg("Websocket connection rejected from unauthorized origin")
	return false
}
