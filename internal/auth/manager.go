// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/events"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
)

// OfflineStore is the slice of the local store the lifecycle consults:
// whether cached rows exist to browse without credentials, and the
// purge that logout and cache-less expiry trigger.
type OfflineStore interface {
	HasOfflineData(ctx context.Context) (bool, error)
	PurgeCachedData(ctx context.Context) error
}

// Publisher is the slice of the event bus the manager emits on.
type Publisher interface {
	Publish(ctx context.Context, p events.Payload) error
}

// Manager drives the session lifecycle. It implements the governor's
// TokenProvider and AuthObserver and the API client's WriteGuard and
// BlockObserver, so one set of transitions governs every upstream
// touchpoint.
type Manager struct {
	flow    *flow
	store   OfflineStore
	bus     Publisher
	prompts *promptRegistry

	mu          sync.Mutex
	state       State
	token       *Token
	returnPath  string
	expiryTimer *time.Timer
}

// New builds a Manager starting in Unauthenticated. Empty OAuth
// endpoint URLs are derived from the API base URL. store and bus may
// be nil in tests; a nil store reads as an empty cache.
func New(cfg config.OAuthConfig, api config.APIConfig, store OfflineStore, bus Publisher) *Manager {
	m := &Manager{
		flow:    newFlow(cfg, api),
		store:   store,
		bus:     bus,
		prompts: newPromptRegistry(),
		state:   StateUnauthenticated,
	}
	metrics.SetAuthState(string(m.state), States())
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// TokenExpiry reports the active token's deadline. ok is false when no
// token is installed or the token carries no deadline.
func (m *Manager) TokenExpiry() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil || m.token.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return m.token.ExpiresAt, true
}

// AuthHeader implements the governor's token source. Only a live
// Authenticated session produces a header.
func (m *Manager) AuthHeader() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated || m.token == nil {
		return "", false
	}
	return m.token.Header(), true
}

// CheckWritable gates upstream mutations on the lifecycle state.
// Anything short of a live session rejects the write.
func (m *Manager) CheckWritable() error {
	const op = "auth.CheckWritable"
	switch m.State() {
	case StateAuthenticated:
		return nil
	case StateBlocked:
		return errs.New(errs.Blocked, op, "account blocked by upstream")
	default:
		return errs.New(errs.AuthExpired, op, "no active session")
	}
}

// Bootstrap resolves the starting state for a fresh process. Tokens do
// not survive a restart, so the only question is whether cached rows
// exist to resume browsing offline.
func (m *Manager) Bootstrap(ctx context.Context) error {
	has, err := m.hasOfflineData(ctx)
	if err != nil {
		return errs.Wrap(errs.Storage, "auth.Bootstrap", "offline data check failed", err)
	}
	if !has {
		return nil
	}
	m.mu.Lock()
	changed := m.applyLocked(eventCacheAvailable, "startup with cached data")
	m.mu.Unlock()
	m.emit(ctx, changed)
	return nil
}

// BeginLogin stores the path to resume after login and returns the
// authorization URL to open. A blocked session refuses to start a
// login until an explicit logout.
func (m *Manager) BeginLogin(returnPath string) (string, error) {
	const op = "auth.BeginLogin"
	if m.flow.clientID() == "" {
		return "", errs.New(errs.Validation, op, "oauth client id is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateBlocked {
		return "", errs.New(errs.Blocked, op, "account blocked by upstream")
	}
	m.returnPath = returnPath
	env := envFromHost(m.flow.frontendURL)
	u := m.flow.authorizationURL(stateParam(env, m.flow.frontendURL))
	logging.Debug().Str("env", env).Str("return_path", returnPath).Msg("Issued login redirect")
	return u, nil
}

// HandleCallback finishes the code exchange and installs the session
// token. The returned URL sends the leader back to the frontend origin
// named in the state parameter, resuming the stored return path.
func (m *Manager) HandleCallback(ctx context.Context, code, rawState string) (string, error) {
	const op = "auth.HandleCallback"
	if code == "" {
		return "", errs.New(errs.Validation, op, "missing authorization code")
	}
	if m.State() == StateBlocked {
		return "", errs.New(errs.Blocked, op, "account blocked by upstream")
	}

	tok, err := m.flow.exchange(ctx, code)
	if err != nil {
		return "", errs.Wrap(errs.Network, op, "authorization code exchange failed", err)
	}
	session := &Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresAt:   tokenDeadline(tok),
	}

	m.mu.Lock()
	if m.state == StateBlocked {
		m.mu.Unlock()
		return "", errs.New(errs.Blocked, op, "account blocked by upstream")
	}
	m.clearTokenLocked()
	m.token = session
	if !session.ExpiresAt.IsZero() {
		m.expiryTimer = time.AfterFunc(time.Until(session.ExpiresAt), m.onExpiryDeadline)
	}
	changed := m.applyLocked(eventLoginSucceeded, "login")
	path := m.returnPath
	m.returnPath = ""
	m.mu.Unlock()

	m.prompts.clear()
	m.emit(ctx, changed)

	_, front := parseState(rawState)
	if front == "" {
		front = m.flow.frontendURL
	}
	logging.Info().
		Str("token", logging.TokenFingerprint(session.AccessToken)).
		Time("expires_at", session.ExpiresAt).
		Msg("Session token installed")
	return resumeURL(front, path), nil
}

// OnAuthFailure implements the governor's auth observer: the upstream
// rejected our credentials with the given status.
func (m *Manager) OnAuthFailure(ctx context.Context, statusCode int) {
	m.expire(ctx, fmt.Sprintf("upstream rejected credentials (%d)", statusCode))
}

// OnBlocked implements the API client's block observer. The session
// stays blocked until an explicit logout.
func (m *Manager) OnBlocked(ctx context.Context) {
	m.mu.Lock()
	m.clearTokenLocked()
	changed := m.applyLocked(eventBlockedUser, "upstream blocked sentinel")
	m.mu.Unlock()
	m.emit(ctx, changed)
}

// Logout drops the token, every pending prompt, and all cached rows,
// returning the lifecycle to Unauthenticated from any state.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.clearTokenLocked()
	m.returnPath = ""
	changed := m.applyLocked(eventLogout, "logout")
	m.mu.Unlock()

	m.prompts.clear()
	m.emit(ctx, changed)
	if m.store != nil {
		if err := m.store.PurgeCachedData(ctx); err != nil {
			return errs.Wrap(errs.Storage, "auth.Logout", "cached data purge failed", err)
		}
	}
	return nil
}

// ResolvePrompt completes a pending login prompt. A confirmed prompt
// yields the authorization URL to open; a declined prompt yields an
// empty URL and no state change.
func (m *Manager) ResolvePrompt(id string, confirmed bool) (string, error) {
	p, ok := m.prompts.consume(id)
	if !ok {
		return "", errs.New(errs.NotFound, "auth.ResolvePrompt", "unknown or expired login prompt")
	}
	if !confirmed {
		logging.Info().Str("prompt_id", id).Msg("Login prompt declined")
		return "", nil
	}
	return m.BeginLogin(p.returnPath)
}

// Close stops the expiry timer. The Manager runs no goroutines of its
// own beyond that timer.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearTokenLocked()
	return nil
}

// expire moves a live session to Expired, settles it against the local
// store, and asks the shell for a fresh login. Calls in any other
// state are no-ops, so repeated 401s collapse into one transition.
func (m *Manager) expire(ctx context.Context, reason string) {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return
	}
	m.clearTokenLocked()
	changed := m.applyLocked(eventAuthFailure, reason)
	m.mu.Unlock()
	if changed == nil {
		return
	}
	m.emit(ctx, changed)
	m.settleExpired(ctx, reason)
}

// settleExpired resolves Expired into OfflineWithCache or
// Unauthenticated according to what the local store holds. An empty
// cache also triggers the full purge so page caches and sync markers
// do not outlive the session.
func (m *Manager) settleExpired(ctx context.Context, reason string) {
	has, err := m.hasOfflineData(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Offline data check failed; treating cache as empty")
	}
	ev := eventCacheEmpty
	if has {
		ev = eventCacheAvailable
	}

	m.mu.Lock()
	if m.state != StateExpired {
		// A login or logout won the race; nothing left to settle.
		m.mu.Unlock()
		return
	}
	changed := m.applyLocked(ev, reason)
	m.mu.Unlock()
	m.emit(ctx, changed)

	if !has && m.store != nil {
		if err := m.store.PurgeCachedData(ctx); err != nil {
			logging.Error().Err(err).Msg("Cached data purge failed after credential expiry")
		}
	}
	m.requestLogin(ctx, reason)
}

// requestLogin registers a pending prompt and asks the shell to
// confirm an interactive re-login.
func (m *Manager) requestLogin(ctx context.Context, reason string) {
	m.mu.Lock()
	path := m.returnPath
	m.mu.Unlock()
	id := m.prompts.add(reason, path)
	m.emit(ctx, events.LoginPromptRequested{PromptID: id, Reason: reason})
}

// onExpiryDeadline fires when the installed token's deadline passes.
func (m *Manager) onExpiryDeadline() {
	m.expire(context.Background(), "token expiry deadline reached")
}

// applyLocked advances the reducer and records the move. The caller
// holds mu. Returns nil when the event does not change state.
func (m *Manager) applyLocked(ev event, reason string) events.Payload {
	to, changed := next(m.state, ev)
	if !changed {
		return nil
	}
	from := m.state
	m.state = to
	metrics.SetAuthState(string(to), States())
	metrics.RecordAuthTransition(string(from), string(to))
	logging.Info().
		Str("from", string(from)).
		Str("to", string(to)).
		Str("reason", reason).
		Msg("Auth state changed")
	return events.AuthStateChanged{From: string(from), To: string(to), Reason: reason}
}

// clearTokenLocked drops the token and cancels the expiry timer. The
// caller holds mu.
func (m *Manager) clearTokenLocked() {
	m.token = nil
	if m.expiryTimer != nil {
		m.expiryTimer.Stop()
		m.expiryTimer = nil
	}
}

// hasOfflineData consults the store, treating a nil store as empty.
func (m *Manager) hasOfflineData(ctx context.Context) (bool, error) {
	if m.store == nil {
		return false, nil
	}
	return m.store.HasOfflineData(ctx)
}

// emit publishes payloads on the bus, dropping them when no bus is
// wired or publishing fails. Nil payloads are skipped.
func (m *Manager) emit(ctx context.Context, payloads ...events.Payload) {
	if m.bus == nil {
		return
	}
	for _, p := range payloads {
		if p == nil {
			continue
		}
		if err := m.bus.Publish(ctx, p); err != nil {
			logging.Warn().Err(err).Msg("Dropped auth event after bus publish failure")
		}
	}
}
