// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package auth

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
)

// Environment labels carried in the state parameter.
const (
	envProd = "prod"
	envDev  = "dev"
)

// scopes is the fixed permission list requested at authorization time.
var scopes = []string{
	"section:member:read",
	"section:programme:read",
	"section:event:read",
	"section:attendance:read",
	"section:attendance:write",
	"section:flexirecord:read",
	"section:flexirecord:write",
}

// flow wraps the authorization-code exchange against the upstream
// provider. Empty endpoint URLs fall back to the API host's standard
// /oauth paths.
type flow struct {
	oauth       *oauth2.Config
	frontendURL string
}

func newFlow(cfg config.OAuthConfig, api config.APIConfig) *flow {
	base := strings.TrimRight(api.BaseURL, "/")
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = base + "/oauth/authorize"
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = base + "/oauth/token"
	}
	return &flow{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		frontendURL: cfg.FrontendURL,
	}
}

func (f *flow) clientID() string { return f.oauth.ClientID }

// authorizationURL builds the URL the leader's browser is sent to:
// client_id, redirect_uri, the fixed scope list, response_type=code,
// and the given state.
func (f *flow) authorizationURL(state string) string {
	return f.oauth.AuthCodeURL(state)
}

// exchange trades the callback code for a token.
func (f *flow) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return f.oauth.Exchange(ctx, code)
}

// stateParam encodes the deployment environment and the frontend
// origin into the state value the provider echoes back on the
// callback. The value identifies the deployment, not a per-request
// nonce.
func stateParam(env, frontendURL string) string {
	return env + "&frontend_url=" + url.QueryEscape(frontendURL)
}

// parseState splits a callback state value into its environment label
// and frontend origin. Missing or malformed pieces come back empty.
func parseState(state string) (env, frontendURL string) {
	env, rest, _ := strings.Cut(state, "&")
	for _, kv := range strings.Split(rest, "&") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k != "frontend_url" {
			continue
		}
		if u, err := url.QueryUnescape(v); err == nil {
			frontendURL = u
		}
	}
	return env, frontendURL
}

// envFromHost maps the frontend hostname to the environment label:
// loopback hosts are dev, everything else prod.
func envFromHost(frontendURL string) string {
	u, err := url.Parse(frontendURL)
	if err != nil {
		return envProd
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return envDev
	}
	return envProd
}

// resumeURL joins the frontend origin with the return path stored at
// login time.
func resumeURL(frontendURL, path string) string {
	if path == "" {
		return frontendURL
	}
	return strings.TrimRight(frontendURL, "/") + "/" + strings.TrimLeft(path, "/")
}
