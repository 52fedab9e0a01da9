// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
)

// APIResponse is the standardized wrapper for every JSON endpoint.
type APIResponse struct {
	// Success indicates whether the request was successful
	Success bool `json:"success"`

	// Data contains the response payload (null on error)
	Data interface{} `json:"data,omitempty"`

	// Error contains error details (null on success)
	Error *APIError `json:"error,omitempty"`

	// Meta contains metadata about the response
	Meta *APIMeta `json:"meta,omitempty"`
}

// APIError represents an error response.
type APIError struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// RequestID is the request ID for tracing
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error codes for API responses
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeUpstreamFailed     = "UPSTREAM_FAILED"
)

// respondJSON sends a successful JSON response with proper headers
func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeResponse(w, status, &APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			RequestID: chimiddleware.GetReqID(r.Context()),
			Timestamp: time.Now().UTC(),
		},
	})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("API error")
	}
	requestID := chimiddleware.GetReqID(r.Context())

	writeResponse(w, status, &APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
		Meta: &APIMeta{
			RequestID: requestID,
			Timestamp: time.Now().UTC(),
		},
	})
}

// respondKind maps a component error onto an HTTP status using its
// errs kind, with the user-facing message from the error taxonomy.
// Kinds the taxonomy keeps silent still need a body here, so they fall
// back to the bare status text.
func respondKind(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status := statusForKind(kind)

	message := errs.UserMessage(err)
	if message == "" {
		message = http.StatusText(status)
	}

	respondError(w, r, status, codeForKind(kind), message, err)
}

func statusForKind(kind errs.Kind) int {
	switch kind {
	case errs.Validation:
		return http.StatusBadRequest
	case errs.AuthExpired:
		return http.StatusUnauthorized
	case errs.Blocked:
		return http.StatusForbidden
	case errs.NotFound:
		return http.StatusNotFound
	case errs.RateLimited:
		return http.StatusTooManyRequests
	case errs.Network:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func codeForKind(kind errs.Kind) string {
	switch kind {
	case errs.Validation:
		return ErrCodeBadRequest
	case errs.AuthExpired:
		return ErrCodeUnauthorized
	case errs.Blocked:
		return ErrCodeForbidden
	case errs.NotFound:
		return ErrCodeNotFound
	case errs.RateLimited:
		return ErrCodeTooManyRequests
	case errs.Network:
		return ErrCodeUpstreamFailed
	default:
		return ErrCodeInternalError
	}
}

func writeResponse(w http.ResponseWriter, status int, response *APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}
