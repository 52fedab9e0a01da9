// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// AuthEvent represents an authentication-lifecycle event for audit logging.
type AuthEvent struct {
	// Event is the type of event (e.g., "login_success", "token_expired",
	// "offline_fallback", "blocked", "logout").
	Event string
	// State is the lifecycle state after the event.
	State string
	// UserID is the leader's identifier when known.
	UserID string
	// Success indicates if the operation succeeded.
	Success bool
	// Error is the failure detail, if any.
	Error string
	// Details contains additional sanitized fields.
	Details map[string]string
}

// AuthLogger provides audit logging for authentication events. Token
// values never reach the log; only a fingerprint does.
type AuthLogger struct {
	logger zerolog.Logger
}

// NewAuthLogger creates an auth audit logger on the global logger.
func NewAuthLogger() *AuthLogger {
	return &AuthLogger{
		logger: With().Str("component", "auth").Logger(),
	}
}

// NewAuthLoggerWithLogger creates an auth audit logger on a specific logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAuthLoggerWithLogger(logger zerolog.Logger) *AuthLogger {
	return &AuthLogger{
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// LogEvent emits a structured auth audit record.
func (l *AuthLogger) LogEvent(event AuthEvent) {
	var e *zerolog.Event
	if event.Success {
		e = l.logger.Info()
	} else {
		e = l.logger.Warn()
	}

	e = e.Str("event", event.Event).Bool("success", event.Success)
	if event.State != "" {
		e = e.Str("state", event.State)
	}
	if event.UserID != "" {
		e = e.Str("user_id", event.UserID)
	}
	if event.Error != "" {
		e = e.Str("error", event.Error)
	}
	for k, v := range event.Details {
		e = e.Str(k, v)
	}

	e.Msg("Auth event")
}

// TokenFingerprint returns a loggable stand-in for a bearer token: the
// first four characters plus its length. Never log the token itself.
func TokenFingerprint(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return "empty"
	}
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
