// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package osm

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/governor"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
)

// Upstream paths. The API splits across a legacy api.php entry point and
// per-area ext/ handlers selected by an "action" query parameter.
const (
	pathHealth      = "/health"
	pathAPI         = "/api.php"
	pathEventList   = "/ext/events/summary/"
	pathEvent       = "/ext/events/event/"
	pathEventShared = "/ext/events/event/sharing/"
	pathMemberGrid  = "/ext/members/contact/grid/"
	pathFlexi       = "/ext/members/flexirecords/"
)

// Endpoint labels for the governor's per-endpoint metrics. Bounded set;
// never derived from request parameters.
const (
	endpointHealth           = "health"
	endpointUserRoles        = "user-roles"
	endpointTerms            = "terms"
	endpointEvents           = "events"
	endpointAttendance       = "attendance"
	endpointSharedAttendance = "shared-attendance"
	endpointMembersGrid      = "members-grid"
	endpointFlexiList        = "flexi-list"
	endpointFlexiStructure   = "flexi-structure"
	endpointFlexiData        = "flexi-data"
	endpointUpdateAttendance = "update-attendance"
	endpointUpdateFlexi      = "update-flexi"
)

// Dispatcher is the serialized request queue the client rides. Satisfied
// by *governor.Governor.
type Dispatcher interface {
	Enqueue(ctx context.Context, req *governor.Request) (*governor.Response, error)
}

// WriteGuard screens mutations before they are enqueued. Implementations
// return nil when the session may write, or an errs error (AuthExpired,
// Blocked) describing why not.
type WriteGuard interface {
	CheckWritable() error
}

// BlockObserver learns when the upstream reports the account blocked, so
// the auth layer can transition before the caller even sees the error.
type BlockObserver interface {
	OnBlocked(ctx context.Context)
}

// Client talks to the Online Scout Manager API through the governor.
//
// Thread safety: the client is stateless beyond its wiring; methods are
// safe for concurrent use, though the governor serializes the actual
// dispatches anyway.
type Client struct {
	queue    Dispatcher
	guard    WriteGuard
	blockObs BlockObserver
}

// New returns a client riding queue. guard and blockObs may be nil, in
// which case mutations are never rejected locally and blocked payloads
// only surface as errors.
func New(queue Dispatcher, guard WriteGuard, blockObs BlockObserver) *Client {
	return &Client{queue: queue, guard: guard, blockObs: blockObs}
}

// call enqueues one request and screens the successful body for the
// blocked sentinel. Errors come back already kinded by the governor.
func (c *Client) call(ctx context.Context, op string, req *governor.Request) ([]byte, error) {
	resp, err := c.queue.Enqueue(ctx, req)
	if err != nil {
		return nil, err
	}

	if isBlockedPayload(resp.Body) {
		logging.Warn().Str("endpoint", req.Endpoint).Msg("Upstream reports account blocked")
		if c.blockObs != nil {
			c.blockObs.OnBlocked(ctx)
		}
		return nil, errs.New(errs.Blocked, op, "account blocked by upstream")
	}

	return resp.Body, nil
}

// get performs one read through the queue.
func (c *Client) get(ctx context.Context, op, endpoint, path string, query url.Values) ([]byte, error) {
	return c.call(ctx, op, &governor.Request{
		Endpoint: endpoint,
		Method:   http.MethodGet,
		Path:     path,
		Query:    query,
		Class:    governor.ClassNormal,
	})
}

// post performs one JSON write through the queue.
func (c *Client) post(ctx context.Context, op, endpoint, path string, query url.Values, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Wrap(errs.Validation, op, "encoding request body", err)
	}

	header := make(http.Header, 1)
	header.Set("Content-Type", "application/json")

	return c.call(ctx, op, &governor.Request{
		Endpoint: endpoint,
		Method:   http.MethodPost,
		Path:     path,
		Query:    query,
		Header:   header,
		Body:     body,
		Class:    governor.ClassNormal,
	})
}

// writable applies the write guard when one is wired.
func (c *Client) writable() error {
	if c.guard == nil {
		return nil
	}
	return c.guard.CheckWritable()
}

// maxBlockedScanBytes bounds the sentinel scan. Blocked responses are a
// few dozen bytes; listing payloads never need the parse.
const maxBlockedScanBytes = 2 << 10

// blockedSentinel is the exact string the upstream uses.
const blockedSentinel = "blocked"

// isBlockedPayload reports whether a successful body carries the blocked
// sentinel: either the bare string, its JSON-quoted form, or an envelope
// with an error/status/message field equal to it.
func isBlockedPayload(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || len(trimmed) > maxBlockedScanBytes {
		return false
	}

	if sentinelString(string(trimmed)) {
		return true
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil && sentinelString(s) {
			return true
		}
		return false
	}
	if trimmed[0] != '{' {
		return false
	}

	var env struct {
		Error   json.RawMessage `json:"error"`
		Status  json.RawMessage `json:"status"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return false
	}
	for _, raw := range []json.RawMessage{env.Error, env.Status, env.Message} {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if sentinelString(s) {
			return true
		}
	}
	return false
}

func sentinelString(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), blockedSentinel)
}

// warnDropped logs the per-element validation failures of one payload.
// Valid rows were retained; a partial decode is a warning, not an error.
func warnDropped(endpoint string, failures []error) {
	if len(failures) == 0 {
		return
	}
	logging.Warn().
		Str("endpoint", endpoint).
		Int("dropped", len(failures)).
		Err(failures[0]).
		Msg("Dropped invalid rows from upstream payload")
}
