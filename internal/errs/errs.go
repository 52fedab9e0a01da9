// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package errs defines the error taxonomy shared across the sync core.
//
// Every component boundary (store, governor, auth, sync) classifies its
// failures into one of the kinds below. Operator-oriented detail travels in
// the wrapped error chain; user-presentable copy lives in a single
// translation table so no other package hardcodes UI text.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for recovery policy and user messaging.
type Kind string

const (
	// Validation indicates malformed upstream or caller data. Invalid
	// records are dropped; valid ones in the same batch are retained.
	Validation Kind = "validation"

	// Storage indicates a local store failure after transactional rollback.
	Storage Kind = "storage"

	// Network indicates a transient transport failure, retryable per the
	// governor's backoff policy.
	Network Kind = "network"

	// RateLimited indicates the upstream returned 429 or an exhausted
	// rate-limit window. The connection is NOT considered down.
	RateLimited Kind = "rate_limited"

	// AuthExpired indicates the upstream rejected credentials (401/403).
	AuthExpired Kind = "auth_expired"

	// Blocked indicates the upstream returned its blocked sentinel. All
	// further upstream calls are rejected for the rest of the session.
	Blocked Kind = "blocked"

	// NotFound indicates an absent upstream resource; most operations treat
	// it as an empty result.
	NotFound Kind = "not_found"

	// Sync indicates an orchestration failure (stage aborted, cancelled).
	Sync Kind = "sync"

	// Unknown is the fallback classification.
	Unknown Kind = "unknown"
)

// E is a classified error. Op names the failing operation in
// "package.Method" form for log correlation.
type E struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *E) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *E) Unwrap() error {
	return e.Err
}

// New creates a classified error without a cause.
func New(kind Kind, op, message string) *E {
	return &E{Kind: kind, Op: op, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, op, format string, args ...interface{}) *E {
	return &E{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. A nil cause returns nil so call
// sites can wrap unconditionally.
func Wrap(kind Kind, op, message string, err error) *E {
	if err == nil {
		return nil
	}
	return &E{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf walks the error chain and returns the first classification found,
// or Unknown. A nil error has no kind and returns "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRateLimited reports whether err is a rate-limit outcome.
func IsRateLimited(err error) bool { return Is(err, RateLimited) }

// IsAuthExpired reports whether err is a credential rejection.
func IsAuthExpired(err error) bool { return Is(err, AuthExpired) }

// IsBlocked reports whether err is the upstream blocked sentinel.
func IsBlocked(err error) bool { return Is(err, Blocked) }

// IsNotFound reports whether err is an absent-resource outcome.
func IsNotFound(err error) bool { return Is(err, NotFound) }

// Retryable reports whether the governor may retry the failed request.
// Rate limits are handled by the queue pause path, not the retry budget,
// so they are not retryable here.
func Retryable(err error) bool {
	return KindOf(err) == Network
}

// userMessages is the single source of user-presentable copy. Empty values
// mean the condition is silent in the UI (rate limits keep retrying,
// not-found collapses to an empty result).
var userMessages = map[Kind]string{
	Validation:  "Some records couldn't be read and were skipped.",
	Storage:     "Local cache error. Please free up space and try again.",
	Network:     "Can't reach the server right now. Showing saved data.",
	RateLimited: "",
	AuthExpired: "Your session has expired. Please log in again.",
	Blocked:     "Access to the server has been blocked. Please contact support before trying again.",
	NotFound:    "",
	Sync:        "Sync didn't finish. We'll try again when you're back online.",
	Unknown:     "Something went wrong. Please try again.",
}

// UserMessage translates an error into user-presentable text. An empty
// string means the caller should surface nothing.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	kind := KindOf(err)
	msg, ok := userMessages[kind]
	if !ok {
		return userMessages[Unknown]
	}
	return msg
}
