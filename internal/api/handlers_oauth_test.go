// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
)

func TestOAuthLogin_Redirects(t *testing.T) {
	t.Parallel()

	session := &fakeSessionController{
		loginURL: "https://auth.example.com/oauth/authorize?client_id=abc",
	}
	handler := NewHandler(testHandlerConfig(), session, &fakeConnectivity{}, &fakeSyncController{}, &fakeStoreReader{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/oauth/login?return=%2Fevents", nil)
	handler.OAuthLogin(w, r)

	if w.Code != http.StatusFound {
		t.Errorf("Expected status 302, got %d", w.Code)
	}

	if got := w.Header().Get("Location"); got != session.loginURL {
		t.Errorf("Location = %q, want %q", got, session.loginURL)
	}

	if session.gotReturn != "/events" {
		t.Errorf("return path = %q, want /events", session.gotReturn)
	}
}

func TestOAuthLogin_NotConfigured(t *testing.T) {
	t.Parallel()

	session := &fakeSessionController{
		loginErr: errs.New(errs.Validation, "auth.BeginLogin", "oauth client is not configured"),
	}
	handler := NewHandler(testHandlerConfig(), session, &fakeConnectivity{}, &fakeSyncController{}, &fakeStoreReader{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/oauth/login", nil)
	handler.OAuthLogin(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Error == nil || response.Error.Code != ErrCodeBadRequest {
		t.Errorf("Expected code %s", ErrCodeBadRequest)
	}
}

func TestOAuthCallback_Success(t *testing.T) {
	t.Parallel()

	session := &fakeSessionController{
		resumeURL: "http://localhost:3000/events",
	}
	handler := NewHandler(testHandlerConfig(), session, &fakeConnectivity{}, &fakeSyncController{}, &fakeStoreReader{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc123&state=xyz789", nil)
	handler.OAuthCallback(w, r)

	if w.Code != http.StatusFound {
		t.Errorf("Expected status 302, got %d", w.Code)
	}

	if got := w.Header().Get("Location"); got != session.resumeURL {
		t.Errorf("Location = %q, want %q", got, session.resumeURL)
	}

	if session.gotCode != "abc123" {
		t.Errorf("code = %q, want abc123", session.gotCode)
	}
	if session.gotState != "xyz789" {
		t.Errorf("state = %q, want xyz789", session.gotState)
	}
}

func TestOAuthCallback_ProviderDenied(t *testing.T) {
	t.Parallel()

	session := &fakeSessionController{}
	handler := NewHandler(testHandlerConfig(), session, &fakeConnectivity{}, &fakeSyncController{}, &fakeStoreReader{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/oauth/callback?error=access_denied", nil)
	handler.OAuthCallback(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	if session.callbacks != 0 {
		t.Error("HandleCallback must not run when the provider denied the request")
	}

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Error == nil {
		t.Fatal("Expected Error to not be nil")
	}
	if response.Error.Message != "Authorization was refused upstream" {
		t.Errorf("Expected refusal message, got %q", response.Error.Message)
	}
}

func TestOAuthCallback_ExchangeFails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "invalid state is a validation failure",
			err:            errs.New(errs.Validation, "auth.HandleCallback", "state mismatch"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrCodeBadRequest,
		},
		{
			name:           "blocked account is forbidden",
			err:            errs.New(errs.Blocked, "auth.HandleCallback", "blocked sentinel"),
			expectedStatus: http.StatusForbidden,
			expectedCode:   ErrCodeForbidden,
		},
		{
			name:           "upstream outage is a bad gateway",
			err:            errs.New(errs.Network, "auth.HandleCallback", "exchange timeout"),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   ErrCodeUpstreamFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &fakeSessionController{callbackErr: tt.err}
			handler := NewHandler(testHandlerConfig(), session, &fakeConnectivity{}, &fakeSyncController{}, &fakeStoreReader{}, nil)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc&state=xyz", nil)
			handler.OAuthCallback(w, r)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			var response APIResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}

			if response.Error == nil || response.Error.Code != tt.expectedCode {
				t.Errorf("Expected code %s", tt.expectedCode)
			}
		})
	}
}
