// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package api

import (
	"fmt"
	"net/http"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
)

// OAuthLogin redirects the browser to the upstream authorization page.
// The optional return query parameter names the frontend path to
// resume after the callback lands.
func (h *Handler) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	returnPath := r.URL.Query().Get("return")

	loginURL, err := h.session.BeginLogin(returnPath)
	if err != nil {
		respondKind(w, r, err)
		return
	}

	http.Redirect(w, r, loginURL, http.StatusFound)
}

// OAuthCallback finishes the authorization code flow. On success the
// browser is redirected back to the frontend; the session token never
// appears in the response.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if denied := query.Get("error"); denied != "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			"Authorization was refused upstream", fmt.Errorf("provider returned %q", denied))
		return
	}

	resume, err := h.session.HandleCallback(r.Context(), query.Get("code"), query.Get("state"))
	if err != nil {
		respondKind(w, r, err)
		return
	}

	logging.Info().Msg("OAuth callback completed, redirecting to frontend")
	http.Redirect(w, r, resume, http.StatusFound)
}
