// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package governor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
)

// maxResponseBytes caps body reads; the largest legitimate payload is a
// section's members grid, far below this.
const maxResponseBytes = 32 << 20

// rateLimitedError signals a 429 out of the retry cycle so the queue layer
// can pause and requeue instead of burning retry budget.
type rateLimitedError struct {
	pause time.Duration
}

func (e *rateLimitedError) Error() string {
	return "upstream rate limited, retry in " + e.pause.String()
}

// dispatch runs one item to completion: the retry cycle, then either the
// rate-limit requeue path or the caller's outcome.
func (g *Governor) dispatch(ctx context.Context, it *item) {
	resp, err := g.execute(ctx, it)

	var rl *rateLimitedError
	if errors.As(err, &rl) {
		g.handleRateLimited(it, rl)
		return
	}

	switch {
	case err == nil:
		metrics.RecordDispatch(string(it.req.Class), "success")
	case errs.IsAuthExpired(err):
		metrics.RecordDispatch(string(it.req.Class), "auth_expired")
	default:
		metrics.RecordDispatch(string(it.req.Class), "error")
	}

	g.respond(it, resp, err)
}

// handleRateLimited pauses the queue for the server's window. Normal
// requests go back to the head of the queue until the requeue cap; probes
// surface the outcome immediately so the connectivity monitor can hold its
// state.
func (g *Governor) handleRateLimited(it *item, rl *rateLimitedError) {
	const op = "governor.dispatch"

	g.pauseFor(rl.pause)
	metrics.RecordRateLimitPause(rl.pause)
	logging.Warn().
		Dur("pause", rl.pause).
		Str("endpoint", endpointLabel(it.req)).
		Int("consecutive", it.rateLimited+1).
		Msg("Upstream rate limit hit, queue paused")

	if it.req.Class == ClassProbe {
		metrics.RecordDispatch(string(ClassProbe), "rate_limited")
		g.respond(it, nil, errs.New(errs.RateLimited, op, "health probe rate limited"))
		return
	}

	it.rateLimited++
	if it.rateLimited >= g.requeueCap() {
		metrics.RecordDispatch(string(it.req.Class), "rate_limited")
		g.respond(it, nil, errs.Newf(errs.RateLimited, op, "rate limited on %d consecutive dispatches", it.rateLimited))
		return
	}

	g.requeueHead(it)
}

func (g *Governor) requeueCap() int {
	if g.cfg.RateLimitRequeueCap > 0 {
		return g.cfg.RateLimitRequeueCap
	}
	return 1
}

// execute runs the bounded-retry cycle for one dispatch. Only transient
// failures consume the budget; 429 returns a rateLimitedError immediately.
func (g *Governor) execute(ctx context.Context, it *item) (*Response, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.cfg.RetryInitial
	policy.MaxInterval = g.cfg.RetryMax
	policy.Multiplier = 2
	policy.RandomizationFactor = 0.2
	policy.MaxElapsedTime = 0

	retries := uint64(0)
	if g.cfg.RetryAttempts > 1 {
		retries = uint64(g.cfg.RetryAttempts - 1)
	}

	var resp *Response
	operation := func() error {
		r, err := g.doOnce(it)
		if err == nil {
			resp = r
			return nil
		}
		// A dying dispatcher or caller must not sit out backoff sleeps.
		if ctx.Err() != nil || it.ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if errs.Retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		metrics.GovernorRetries.WithLabelValues(endpointLabel(it.req)).Inc()
		logging.Debug().
			Err(err).
			Dur("backoff", wait).
			Str("endpoint", endpointLabel(it.req)).
			Msg("Transient upstream failure, retrying")
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx), notify); err != nil {
		return nil, err
	}
	return resp, nil
}

// doOnce performs a single HTTP attempt through the circuit breaker.
func (g *Governor) doOnce(it *item) (*Response, error) {
	const op = "governor.dispatch"
	req := it.req

	timeout := req.Timeout
	if timeout <= 0 {
		if req.Class == ClassProbe {
			timeout = g.api.ProbeTimeout
		} else {
			timeout = g.api.Timeout
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rctx, cancel := context.WithTimeout(it.ctx, timeout)
	defer cancel()

	httpReq, err := g.buildRequest(rctx, req)
	if err != nil {
		return nil, errs.Wrap(errs.Validation, op, "build upstream request", err)
	}

	start := time.Now()
	resp, err := castResult[Response](g.breaker.execute(func() (any, error) {
		return g.roundTrip(httpReq)
	}))
	metrics.GovernorRequestDuration.WithLabelValues(endpointLabel(req)).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errs.Wrap(errs.Network, op, "upstream circuit open", err)
		}
		return nil, err
	}

	return g.screen(it, resp)
}

// roundTrip is the breaker-guarded HTTP hop. Transport failures and 5xx
// count against the breaker; everything else is a policy matter handled in
// screen.
func (g *Governor) roundTrip(httpReq *http.Request) (any, error) {
	const op = "governor.dispatch"

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, errs.Wrap(errs.Network, op, "upstream request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errs.Wrap(errs.Network, op, "read upstream response", err)
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header.Clone(), Body: body}
	if resp.StatusCode >= 500 {
		return out, errs.Newf(errs.Network, op, "upstream returned %d", resp.StatusCode)
	}
	return out, nil
}

// screen maps response statuses to outcomes after the breaker accounting.
func (g *Governor) screen(it *item, resp *Response) (*Response, error) {
	const op = "governor.dispatch"

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &rateLimitedError{pause: retryWindow(resp.Header)}

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if g.authObs != nil {
			g.authObs.OnAuthFailure(it.ctx, resp.StatusCode)
		}
		return nil, errs.Newf(errs.AuthExpired, op, "upstream rejected credentials with %d", resp.StatusCode)

	case resp.StatusCode == http.StatusNotFound:
		return nil, errs.Newf(errs.NotFound, op, "upstream returned 404 for %s", it.req.Path)

	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, errs.Newf(errs.Validation, op, "upstream rejected request with %d", resp.StatusCode)

	case resp.StatusCode >= 400:
		return nil, errs.Newf(errs.Unknown, op, "upstream returned %d", resp.StatusCode)
	}

	// Pre-emptive pause when the rate budget is about to run out, so the
	// next dispatch does not convert into a 429.
	if window, low := lowRemaining(resp.Header); low {
		g.pauseFor(window)
		metrics.RecordRateLimitPause(window)
		logging.Warn().
			Dur("pause", window).
			Str("endpoint", endpointLabel(it.req)).
			Msg("Rate-limit budget nearly exhausted, queue paused")
	}

	return resp, nil
}

// buildRequest assembles the HTTP request with auth, identity, and accept
// headers.
func (g *Governor) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	u := strings.TrimSuffix(g.api.BaseURL, "/") + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, err
	}

	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if g.api.UserAgent != "" {
		httpReq.Header.Set("User-Agent", g.api.UserAgent)
	}
	if g.tokens != nil {
		if header, ok := g.tokens.AuthHeader(); ok {
			httpReq.Header.Set("Authorization", header)
		}
	}

	return httpReq, nil
}

func endpointLabel(req *Request) string {
	if req.Endpoint != "" {
		return req.Endpoint
	}
	return "other"
}
