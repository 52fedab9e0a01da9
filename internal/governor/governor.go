// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package governor serializes every upstream API call through a single
// dispatcher goroutine.
//
// The upstream rate-limits aggressively; uncoordinated fan-out trips it.
// Requests are enqueued into two FIFO classes (normal and health-probe,
// probes dequeue first) and dispatched one at a time with a minimum spacing
// floor. A 429 pauses the whole queue for the server's retry window and
// puts the request back at the head, so ordering survives rate limiting.
// Transient failures retry with exponential backoff inside the dispatch, a
// circuit breaker guards the HTTP hop, and 401/403 responses are forwarded
// to the auth manager while the caller sees an AuthExpired outcome.
package governor

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
)

// Class is a request priority class. Ordering is FIFO within a class.
type Class string

const (
	// ClassNormal is the default class for all data requests.
	ClassNormal Class = "normal"

	// ClassProbe is reserved for connectivity health probes. Probes dequeue
	// before normal requests and are never re-enqueued on rate limiting.
	ClassProbe Class = "health-probe"
)

// Request is one upstream call. Endpoint is a bounded logical name used as
// the metrics label; Path carries the concrete URL path.
type Request struct {
	Endpoint string
	Method   string
	Path     string
	Query    url.Values
	Header   http.Header
	Body     []byte
	Class    Class

	// Timeout overrides the per-attempt timeout. Zero selects the
	// configured default for the class.
	Timeout time.Duration
}

// Response is a raw upstream response. Bodies are decoded by the client
// layer, not here.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// TokenProvider supplies the Authorization header for outgoing requests.
type TokenProvider interface {
	// AuthHeader returns the header value and whether a credential exists.
	AuthHeader() (string, bool)
}

// AuthObserver is notified when upstream rejects our credentials.
type AuthObserver interface {
	OnAuthFailure(ctx context.Context, statusCode int)
}

// BatchResult is one entry of a batched fan-out, aligned by index with the
// submitted requests.
type BatchResult struct {
	Response *Response
	Err      error
}

// outcome travels back to the enqueueing caller.
type outcome struct {
	resp *Response
	err  error
}

// item is one queued request with its retry accounting.
type item struct {
	req    *Request
	ctx    context.Context
	result chan outcome

	// rateLimited counts consecutive rate-limited dispatches. It does not
	// consume the transient retry budget.
	rateLimited int
}

// Governor owns the upstream request queue. Construct with New, run the
// dispatcher with Run, submit with Enqueue.
type Governor struct {
	cfg config.GovernorConfig
	api config.APIConfig

	client  *http.Client
	limiter *rate.Limiter
	breaker *requestBreaker
	tokens  TokenProvider
	authObs AuthObserver

	mu         sync.Mutex
	probe      []*item
	normal     []*item
	pauseUntil time.Time

	notify chan struct{}
}

// New builds a governor. tokens and authObs may be nil for anonymous use.
func New(cfg config.GovernorConfig, api config.APIConfig, tokens TokenProvider, authObs AuthObserver) *Governor {
	limit := rate.Inf
	if cfg.SpacingFloor > 0 {
		limit = rate.Every(cfg.SpacingFloor)
	}

	return &Governor{
		cfg:     cfg,
		api:     api,
		client:  &http.Client{},
		limiter: rate.NewLimiter(limit, 1),
		breaker: newRequestBreaker(),
		tokens:  tokens,
		authObs: authObs,
		notify:  make(chan struct{}, 1),
	}
}

// Run is the dispatcher loop. It exits when ctx is cancelled, failing any
// still-queued requests, and is safe to restart afterwards.
func (g *Governor) Run(ctx context.Context) error {
	logging.Info().
		Dur("spacing_floor", g.cfg.SpacingFloor).
		Int("queue_capacity", g.cfg.QueueCapacity).
		Msg("Governor dispatcher started")

	defer g.failPending()

	for {
		it := g.dequeue()
		if it == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-g.notify:
				continue
			}
		}

		// The caller may have given up while the request sat queued.
		if err := it.ctx.Err(); err != nil {
			g.respond(it, nil, errs.Wrap(errs.Network, "governor.Run", "request cancelled while queued", err))
			continue
		}

		if err := g.waitTurn(ctx); err != nil {
			g.respond(it, nil, errs.Wrap(errs.Network, "governor.Run", "dispatcher stopping", err))
			return ctx.Err()
		}

		g.dispatch(ctx, it)
	}
}

// Enqueue submits one request and blocks until its outcome or until ctx is
// done. FIFO order within the request's class is guaranteed.
func (g *Governor) Enqueue(ctx context.Context, req *Request) (*Response, error) {
	const op = "governor.Enqueue"

	if req == nil {
		return nil, errs.New(errs.Validation, op, "nil request")
	}
	if req.Class == "" {
		req.Class = ClassNormal
	}

	it := &item{req: req, ctx: ctx, result: make(chan outcome, 1)}
	if err := g.push(it); err != nil {
		return nil, err
	}

	select {
	case out := <-it.result:
		return out.resp, out.err
	case <-ctx.Done():
		return nil, errs.Wrap(errs.Network, op, "request cancelled", ctx.Err())
	}
}

// EnqueueBatch fans the requests out in batches of the configured size with
// a pause between batches. Failures stay isolated per entry; the returned
// slice aligns by index with reqs.
func (g *Governor) EnqueueBatch(ctx context.Context, reqs []*Request) []BatchResult {
	results := make([]BatchResult, len(reqs))

	size := g.cfg.BatchSize
	if size <= 0 {
		size = 1
	}

	for start := 0; start < len(reqs); start += size {
		end := min(start+size, len(reqs))

		var eg errgroup.Group
		for i := start; i < end; i++ {
			eg.Go(func() error {
				resp, err := g.Enqueue(ctx, reqs[i])
				results[i] = BatchResult{Response: resp, Err: err}
				return nil
			})
		}
		_ = eg.Wait()

		if end < len(reqs) && g.cfg.BatchPause > 0 {
			timer := time.NewTimer(g.cfg.BatchPause)
			select {
			case <-ctx.Done():
				timer.Stop()
				for i := end; i < len(reqs); i++ {
					results[i] = BatchResult{Err: errs.Wrap(errs.Network, "governor.EnqueueBatch", "batch cancelled", ctx.Err())}
				}
				return results
			case <-timer.C:
			}
		}
	}

	return results
}

// push appends the item to its class queue and wakes the dispatcher.
func (g *Governor) push(it *item) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch it.req.Class {
	case ClassProbe:
		g.probe = append(g.probe, it)
	default:
		if g.cfg.QueueCapacity > 0 && len(g.normal) >= g.cfg.QueueCapacity {
			return errs.Newf(errs.Network, "governor.Enqueue", "queue full at %d requests", g.cfg.QueueCapacity)
		}
		g.normal = append(g.normal, it)
	}
	g.setDepthLocked()

	g.wake()
	return nil
}

// requeueHead puts a rate-limited request back at the front of its queue so
// its position survives the pause.
func (g *Governor) requeueHead(it *item) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.normal = append([]*item{it}, g.normal...)
	g.setDepthLocked()

	g.wake()
}

// dequeue pops the next item, probes first. Returns nil when idle.
func (g *Governor) dequeue() *item {
	g.mu.Lock()
	defer g.mu.Unlock()

	var it *item
	switch {
	case len(g.probe) > 0:
		it = g.probe[0]
		g.probe = g.probe[1:]
	case len(g.normal) > 0:
		it = g.normal[0]
		g.normal = g.normal[1:]
	default:
		return nil
	}
	g.setDepthLocked()
	return it
}

func (g *Governor) wake() {
	select {
	case g.notify <- struct{}{}:
	default:
	}
}

func (g *Governor) setDepthLocked() {
	metrics.GovernorQueueDepth.WithLabelValues(string(ClassNormal)).Set(float64(len(g.normal)))
	metrics.GovernorQueueDepth.WithLabelValues(string(ClassProbe)).Set(float64(len(g.probe)))
}

// waitTurn honors any active rate-limit pause, then the spacing floor.
func (g *Governor) waitTurn(ctx context.Context) error {
	g.mu.Lock()
	until := g.pauseUntil
	g.mu.Unlock()

	if wait := time.Until(until); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return g.limiter.Wait(ctx)
}

// pauseFor extends the queue pause. A shorter window never shortens an
// already-scheduled one.
func (g *Governor) pauseFor(d time.Duration) {
	until := time.Now().Add(d)

	g.mu.Lock()
	if until.After(g.pauseUntil) {
		g.pauseUntil = until
	}
	g.mu.Unlock()
}

// respond delivers the outcome; the result channel is buffered so an
// abandoned caller never blocks the dispatcher.
func (g *Governor) respond(it *item, resp *Response, err error) {
	it.result <- outcome{resp: resp, err: err}
}

// failPending answers everything still queued when the dispatcher exits.
func (g *Governor) failPending() {
	g.mu.Lock()
	pending := make([]*item, 0, len(g.probe)+len(g.normal))
	pending = append(pending, g.probe...)
	pending = append(pending, g.normal...)
	g.probe = nil
	g.normal = nil
	g.setDepthLocked()
	g.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	logging.Warn().Int("pending", len(pending)).Msg("Governor dispatcher stopped with queued requests")
	for _, it := range pending {
		g.respond(it, nil, errs.New(errs.Network, "governor.Run", "dispatcher stopped"))
	}
}
