// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package api

import (
	"net/http"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
)

// SyncTrigger starts a full sync pass in the background. The run
// outlives the request; progress streams over the websocket and the
// outcome lands in /api/v1/status.
func (h *Handler) SyncTrigger(w http.ResponseWriter, r *http.Request) {
	if !h.sync.TriggerSync(r.Context()) {
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "A sync is already running", nil)
		return
	}

	logging.Info().Msg("Manual sync triggered over loopback API")
	respondJSON(w, r, http.StatusAccepted, map[string]interface{}{
		"triggered": true,
	})
}
