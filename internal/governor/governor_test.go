// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package governor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
)

func testGovernorConfig() config.GovernorConfig {
	return config.GovernorConfig{
		SpacingFloor:        time.Millisecond,
		QueueCapacity:       64,
		BatchSize:           2,
		BatchPause:          30 * time.Millisecond,
		RetryInitial:        10 * time.Millisecond,
		RetryMax:            40 * time.Millisecond,
		RetryAttempts:       3,
		RateLimitRequeueCap: 5,
	}
}

func testAPIConfig(baseURL string) config.APIConfig {
	return config.APIConfig{
		BaseURL:      baseURL,
		Timeout:      2 * time.Second,
		ProbeTimeout: time.Second,
		UserAgent:    "vikingsync-test",
	}
}

func newUpstream(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func startGovernor(t *testing.T, g *Governor) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// hitLog records upstream arrivals for ordering and spacing assertions.
type hitLog struct {
	mu    sync.Mutex
	paths []string
	times []time.Time
}

func (h *hitLog) add(r *http.Request) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, r.URL.Path)
	h.times = append(h.times, time.Now())
	count := 0
	for _, p := range h.paths {
		if p == r.URL.Path {
			count++
		}
	}
	return count
}

func (h *hitLog) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.paths))
	copy(out, h.paths)
	return out
}

func (h *hitLog) gaps() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	var gaps []time.Duration
	for i := 1; i < len(h.times); i++ {
		gaps = append(gaps, h.times[i].Sub(h.times[i-1]))
	}
	return gaps
}

func queueLen(g *Governor, class Class) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if class == ClassProbe {
		return len(g.probe)
	}
	return len(g.normal)
}

func waitQueueLen(t *testing.T, g *Governor, class Class, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if queueLen(g, class) == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Queue %s never reached length %d, got %d", class, want, queueLen(g, class))
}

type staticToken struct{ header string }

func (s staticToken) AuthHeader() (string, bool) { return s.header, s.header != "" }

type authSpy struct {
	mu       sync.Mutex
	statuses []int
}

func (a *authSpy) OnAuthFailure(_ context.Context, status int) {
	a.mu.Lock()
	a.statuses = append(a.statuses, status)
	a.mu.Unlock()
}

func (a *authSpy) seen() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]int, len(a.statuses))
	copy(out, a.statuses)
	return out
}

func TestGovernor_EnqueueRoundTrip(t *testing.T) {
	var gotAuth, gotUA, gotAccept string
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	})

	g := New(testGovernorConfig(), testAPIConfig(srv.URL), staticToken{header: "Bearer tok-1"}, nil)
	startGovernor(t, g)

	resp, err := g.Enqueue(context.Background(), &Request{
		Endpoint: "ping",
		Method:   http.MethodGet,
		Path:     "/api/ping",
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Errorf("Expected body to round-trip, got %s", resp.Body)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Expected Authorization header, got %q", gotAuth)
	}
	if gotUA != "vikingsync-test" {
		t.Errorf("Expected User-Agent vikingsync-test, got %q", gotUA)
	}
	if gotAccept != "application/json" {
		t.Errorf("Expected Accept application/json, got %q", gotAccept)
	}
}

func TestGovernor_FIFOWithinClass(t *testing.T) {
	log := &hitLog{}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		w.WriteHeader(http.StatusOK)
	})

	g := New(testGovernorConfig(), testAPIConfig(srv.URL), nil, nil)

	// Queue three requests in a known order before the dispatcher starts.
	var wg sync.WaitGroup
	for _, path := range []string{"/first", "/second", "/third"} {
		wg.Add(1)
		depth := queueLen(g, ClassNormal) + 1
		go func() {
			defer wg.Done()
			if _, err := g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: path}); err != nil {
				t.Errorf("Enqueue %s failed: %v", path, err)
			}
		}()
		waitQueueLen(t, g, ClassNormal, depth)
	}

	startGovernor(t, g)
	wg.Wait()

	got := log.snapshot()
	want := []string{"/first", "/second", "/third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected dispatch order %v, got %v", want, got)
		}
	}
}

func TestGovernor_ProbeDequeuesFirst(t *testing.T) {
	log := &hitLog{}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		w.WriteHeader(http.StatusOK)
	})

	g := New(testGovernorConfig(), testAPIConfig(srv.URL), nil, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: "/data"})
	}()
	waitQueueLen(t, g, ClassNormal, 1)
	go func() {
		defer wg.Done()
		g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: "/healthz", Class: ClassProbe})
	}()
	waitQueueLen(t, g, ClassProbe, 1)

	startGovernor(t, g)
	wg.Wait()

	got := log.snapshot()
	if got[0] != "/healthz" {
		t.Errorf("Expected probe dispatched first, got order %v", got)
	}
}

func TestGovernor_SpacingFloor(t *testing.T) {
	log := &hitLog{}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		w.WriteHeader(http.StatusOK)
	})

	cfg := testGovernorConfig()
	cfg.SpacingFloor = 100 * time.Millisecond
	g := New(cfg, testAPIConfig(srv.URL), nil, nil)

	var wg sync.WaitGroup
	for i, path := range []string{"/a", "/b", "/c"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: path})
		}()
		waitQueueLen(t, g, ClassNormal, i+1)
	}

	startGovernor(t, g)
	wg.Wait()

	for i, gap := range log.gaps() {
		if gap < 80*time.Millisecond {
			t.Errorf("Expected dispatch gap %d >= ~100ms, got %v", i, gap)
		}
	}
}

func TestGovernor_RateLimited429RequeuedAtHead(t *testing.T) {
	log := &hitLog{}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		n := log.add(r)
		if r.URL.Path == "/a" && n == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	g := New(testGovernorConfig(), testAPIConfig(srv.URL), nil, nil)

	var wg sync.WaitGroup
	var respA *Response
	var errA error
	wg.Add(1)
	go func() {
		defer wg.Done()
		respA, errA = g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: "/a"})
	}()
	waitQueueLen(t, g, ClassNormal, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: "/b"})
	}()
	waitQueueLen(t, g, ClassNormal, 2)

	start := time.Now()
	startGovernor(t, g)
	wg.Wait()

	if errA != nil {
		t.Fatalf("Expected /a to succeed after requeue, got %v", errA)
	}
	if respA.StatusCode != http.StatusOK {
		t.Errorf("Expected final status 200 for /a, got %d", respA.StatusCode)
	}

	got := log.snapshot()
	want := []string{"/a", "/a", "/b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected head requeue to preserve order %v, got %v", want, got)
		}
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("Expected the 429 pause to hold the queue ~1s, finished in %v", elapsed)
	}
}

func TestGovernor_RateLimitCapSurfacesOutcome(t *testing.T) {
	log := &hitLog{}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	cfg := testGovernorConfig()
	cfg.RateLimitRequeueCap = 2
	g := New(cfg, testAPIConfig(srv.URL), nil, nil)
	startGovernor(t, g)

	_, err := g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: "/a"})
	if err == nil {
		t.Fatal("Expected RateLimited outcome after hitting the requeue cap")
	}
	if !errs.IsRateLimited(err) {
		t.Errorf("Expected RateLimited kind, got %v", errs.KindOf(err))
	}
	if hits := len(log.snapshot()); hits != 2 {
		t.Errorf("Expected exactly 2 dispatches before the cap, got %d", hits)
	}
}

func TestGovernor_ProbeRateLimitedSurfacesImmediately(t *testing.T) {
	log := &hitLog{}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	g := New(testGovernorConfig(), testAPIConfig(srv.URL), nil, nil)
	startGovernor(t, g)

	start := time.Now()
	_, err := g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: "/healthz", Class: ClassProbe})
	if !errs.IsRateLimited(err) {
		t.Fatalf("Expected RateLimited for probe, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Expected probe outcome without waiting out the pause, took %v", elapsed)
	}
	if hits := len(log.snapshot()); hits != 1 {
		t.Errorf("Expected probe not to be re-enqueued, got %d hits", hits)
	}
}

func TestGovernor_AuthFailureForwarded(t *testing.T) {
	log := &hitLog{}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		w.WriteHeader(http.StatusUnauthorized)
	})

	spy := &authSpy{}
	g := New(testGovernorConfig(), testAPIConfig(srv.URL), nil, spy)
	startGovernor(t, g)

	_, err := g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: "/secure"})
	if !errs.IsAuthExpired(err) {
		t.Fatalf("Expected AuthExpired, got %v", err)
	}
	if hits := len(log.snapshot()); hits != 1 {
		t.Errorf("Expected no retry on 401, got %d hits", hits)
	}
	seen := spy.seen()
	if len(seen) != 1 || seen[0] != http.StatusUnauthorized {
		t.Errorf("Expected auth observer to see 401, got %v", seen)
	}
}

func TestGovernor_TransientFailuresRetry(t *testing.T) {
	log := &hitLog{}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if log.add(r) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`"recovered"`))
	})

	g := New(testGovernorConfig(), testAPIConfig(srv.URL), nil, nil)
	startGovernor(t, g)

	resp, err := g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: "/flaky"})
	if err != nil {
		t.Fatalf("Expected retries to recover, got %v", err)
	}
	if string(resp.Body) != `"recovered"` {
		t.Errorf("Expected recovered body, got %s", resp.Body)
	}
	if hits := len(log.snapshot()); hits != 3 {
		t.Errorf("Expected 3 attempts, got %d", hits)
	}
}

func TestGovernor_RetryBudgetExhausted(t *testing.T) {
	log := &hitLog{}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		w.WriteHeader(http.StatusInternalServerError)
	})

	g := New(testGovernorConfig(), testAPIConfig(srv.URL), nil, nil)
	startGovernor(t, g)

	_, err := g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: "/down"})
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if errs.KindOf(err) != errs.Network {
		t.Errorf("Expected Network kind, got %v", errs.KindOf(err))
	}
	if hits := len(log.snapshot()); hits != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", hits)
	}
}

func TestGovernor_ClientErrorsDoNotRetry(t *testing.T) {
	cases := []struct {
		path   string
		status int
		kind   errs.Kind
	}{
		{"/missing", http.StatusNotFound, errs.NotFound},
		{"/bad", http.StatusBadRequest, errs.Validation},
		{"/teapot", http.StatusTeapot, errs.Unknown},
	}

	log := &hitLog{}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		for _, tc := range cases {
			if r.URL.Path == tc.path {
				w.WriteHeader(tc.status)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	g := New(testGovernorConfig(), testAPIConfig(srv.URL), nil, nil)
	startGovernor(t, g)

	for _, tc := range cases {
		_, err := g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: tc.path})
		if errs.KindOf(err) != tc.kind {
			t.Errorf("Expected %s for %d, got %v", tc.kind, tc.status, errs.KindOf(err))
		}
	}
	if hits := len(log.snapshot()); hits != len(cases) {
		t.Errorf("Expected one attempt per request, got %d hits for %d requests", hits, len(cases))
	}
}

func TestGovernor_AttemptTimeoutRetriesAsNetwork(t *testing.T) {
	log := &hitLog{}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	cfg := testGovernorConfig()
	cfg.RetryAttempts = 2
	g := New(cfg, testAPIConfig(srv.URL), nil, nil)
	startGovernor(t, g)

	_, err := g.Enqueue(context.Background(), &Request{
		Method:  http.MethodGet,
		Path:    "/slow",
		Timeout: 30 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if errs.KindOf(err) != errs.Network {
		t.Errorf("Expected Network kind for timeout, got %v", errs.KindOf(err))
	}
	if hits := len(log.snapshot()); hits != 2 {
		t.Errorf("Expected timeout to be retried once, got %d attempts", hits)
	}
}

func TestGovernor_EnqueueBatch(t *testing.T) {
	log := &hitLog{}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		if r.URL.Path == "/events/3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	g := New(testGovernorConfig(), testAPIConfig(srv.URL), nil, nil)
	startGovernor(t, g)

	reqs := []*Request{
		{Method: http.MethodGet, Path: "/events/1"},
		{Method: http.MethodGet, Path: "/events/2"},
		{Method: http.MethodGet, Path: "/events/3"},
		{Method: http.MethodGet, Path: "/events/4"},
		{Method: http.MethodGet, Path: "/events/5"},
	}

	start := time.Now()
	results := g.EnqueueBatch(context.Background(), reqs)
	elapsed := time.Since(start)

	if len(results) != len(reqs) {
		t.Fatalf("Expected %d results, got %d", len(reqs), len(results))
	}
	for i, res := range results {
		if i == 2 {
			if !errs.IsNotFound(res.Err) {
				t.Errorf("Expected NotFound for /events/3, got %v", res.Err)
			}
			continue
		}
		if res.Err != nil {
			t.Errorf("Expected success for %s, got %v", reqs[i].Path, res.Err)
		}
	}
	if hits := len(log.snapshot()); hits != 5 {
		t.Errorf("Expected all 5 requests dispatched, got %d", hits)
	}
	// Three batches of two means two inter-batch pauses.
	if elapsed < 60*time.Millisecond {
		t.Errorf("Expected at least two 30ms batch pauses, finished in %v", elapsed)
	}
}

func TestGovernor_QueueFullRejects(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cfg := testGovernorConfig()
	cfg.QueueCapacity = 1
	g := New(cfg, testAPIConfig(srv.URL), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		g.Enqueue(ctx, &Request{Method: http.MethodGet, Path: "/queued"})
	}()
	waitQueueLen(t, g, ClassNormal, 1)

	_, err := g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: "/rejected"})
	if err == nil {
		t.Fatal("Expected queue-full rejection")
	}
	if errs.KindOf(err) != errs.Network {
		t.Errorf("Expected Network kind for queue full, got %v", errs.KindOf(err))
	}

	cancel()
	<-done
}

func TestGovernor_LowRemainingPausesQueue(t *testing.T) {
	log := &hitLog{}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		if r.URL.Path == "/a" {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", "1")
		}
		w.WriteHeader(http.StatusOK)
	})

	g := New(testGovernorConfig(), testAPIConfig(srv.URL), nil, nil)

	var wg sync.WaitGroup
	for i, path := range []string{"/a", "/b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: path}); err != nil {
				t.Errorf("Enqueue %s failed: %v", path, err)
			}
		}()
		waitQueueLen(t, g, ClassNormal, i+1)
	}

	startGovernor(t, g)
	wg.Wait()

	gaps := log.gaps()
	if len(gaps) != 1 {
		t.Fatalf("Expected 2 upstream hits, got %d", len(gaps)+1)
	}
	if gaps[0] < 900*time.Millisecond {
		t.Errorf("Expected near-zero remaining to pause the queue ~1s, gap was %v", gaps[0])
	}
}

func TestGovernor_StopFailsPending(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	g := New(testGovernorConfig(), testAPIConfig(srv.URL), nil, nil)
	g.pauseFor(time.Hour)

	errCh := make(chan error, 2)
	for _, path := range []string{"/p1", "/p2"} {
		go func() {
			_, err := g.Enqueue(context.Background(), &Request{Method: http.MethodGet, Path: path})
			errCh <- err
		}()
	}
	waitQueueLen(t, g, ClassNormal, 2)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		g.Run(ctx)
	}()

	// The dispatcher parks the first request in the hour-long pause,
	// leaving the second queued.
	waitQueueLen(t, g, ClassNormal, 1)

	cancel()
	<-runDone

	for i := 0; i < 2; i++ {
		select {
		case err := <-errCh:
			if errs.KindOf(err) != errs.Network {
				t.Errorf("Expected Network error for pending request, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Pending request never received an outcome")
		}
	}
}

func TestRetryWindow(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "90")
	if got := retryWindow(h); got != 90*time.Second {
		t.Errorf("Expected 90s from Retry-After seconds, got %v", got)
	}

	h = http.Header{}
	h.Set("Retry-After", time.Now().Add(45*time.Second).UTC().Format(http.TimeFormat))
	if got := retryWindow(h); got < 40*time.Second || got > 46*time.Second {
		t.Errorf("Expected ~45s from Retry-After date, got %v", got)
	}

	h = http.Header{}
	h.Set("X-RateLimit-Reset", "12")
	if got := retryWindow(h); got != 12*time.Second {
		t.Errorf("Expected 12s from relative reset, got %v", got)
	}

	h = http.Header{}
	h.Set("X-RateLimit-Reset", "0")
	if got := retryWindow(h); got != minRateLimitPause {
		t.Errorf("Expected elapsed window clamped to %v, got %v", minRateLimitPause, got)
	}

	h = http.Header{}
	h.Set("Retry-After", "100000")
	if got := retryWindow(h); got != maxRateLimitPause {
		t.Errorf("Expected cap at %v, got %v", maxRateLimitPause, got)
	}

	if got := retryWindow(http.Header{}); got != defaultRateLimitPause {
		t.Errorf("Expected default window %v, got %v", defaultRateLimitPause, got)
	}
}

func TestLowRemaining(t *testing.T) {
	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset", "30")
	window, low := lowRemaining(h)
	if !low {
		t.Fatal("Expected low remaining to trigger")
	}
	if window != 30*time.Second {
		t.Errorf("Expected 30s window, got %v", window)
	}

	h.Set("X-RateLimit-Remaining", "50")
	if _, low := lowRemaining(h); low {
		t.Error("Expected plenty of budget not to trigger")
	}

	h = http.Header{}
	h.Set("X-RateLimit-Remaining", "0")
	if _, low := lowRemaining(h); low {
		t.Error("Expected no pause without a reset indicator")
	}
}
