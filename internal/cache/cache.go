// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package cache is the page cache sitting between the UI-facing surfaces
// and the local store.
//
// Each cached page kind (startup, events-page, sections-page, event-detail)
// has a configured TTL. Reads go memory first, then the persistent
// page_cache rows in the store, so stale pages survive a process restart.
// On a miss or an expired entry the cache populates read-through via a
// registered loader while upstream is reachable; without connectivity an
// expired entry is served stale rather than dropped, because stale data
// beats no data for an offline field app.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// cleanupPeriod is how often expired entries are pruned from the memory
// layer. Persistent rows are left in place so they stay servable stale.
const cleanupPeriod = 5 * time.Minute

// Backing is the slice of the local store the cache persists through.
type Backing interface {
	GetPageCache(ctx context.Context, key string) (*models.PageCacheEntry, error)
	SetPageCache(ctx context.Context, entry models.PageCacheEntry) error
	DeletePageCache(ctx context.Context, key string) error
}

// Loader fetches a page payload from upstream on a cache miss. The full
// cache key is passed so event-detail loaders can recover their scope with
// ParseEventDetailKey.
type Loader func(ctx context.Context, key string) ([]byte, error)

// entry is one in-memory page payload.
type entry struct {
	payload  []byte
	cachedAt time.Time
}

// Result is one page read. Age is the time since the payload was stamped.
// Stale marks payloads served past their TTL because upstream could not
// repopulate them.
type Result struct {
	Payload []byte
	Age     time.Duration
	Stale   bool
}

// Stats tracks cache performance counters.
type Stats struct {
	mu          sync.RWMutex
	Hits        int64
	Misses      int64
	Expired     int64
	StaleServed int64
	Loads       int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Cache is a thread-safe TTL page cache with read-through population and
// write-through persistence.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	loaderMu sync.RWMutex
	loaders  map[Page]Loader

	backing Backing
	cfg     config.CacheConfig
	online  func() bool

	stats Stats

	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// New builds a page cache over the given persistent backing. online reports
// whether upstream is currently reachable; nil means always reachable. A
// background goroutine prunes expired in-memory entries until Close.
func New(cfg config.CacheConfig, backing Backing, online func() bool) *Cache {
	c := &Cache{
		entries:     make(map[string]entry),
		loaders:     make(map[Page]Loader),
		backing:     backing,
		cfg:         cfg,
		online:      online,
		stats:       Stats{LastCleanup: time.Now()},
		cleanupStop: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

// Close stops the background cleanup goroutine. The cache remains usable
// for reads and writes afterwards.
func (c *Cache) Close() {
	close(c.cleanupStop)
	<-c.cleanupDone
}

// RegisterLoader installs the read-through loader for one page kind.
// Registering again replaces the previous loader.
func (c *Cache) RegisterLoader(page Page, fn Loader) {
	c.loaderMu.Lock()
	c.loaders[page] = fn
	c.loaderMu.Unlock()
}

// Get returns the payload for key.
//
// A fresh entry is returned directly. An expired or missing entry is
// repopulated through the page's loader when upstream is reachable; when it
// is not, an expired entry is served with Stale set. A key with nothing
// cached and no way to load reports errs.NotFound.
func (c *Cache) Get(ctx context.Context, key string) (*Result, error) {
	const op = "cache.Get"

	page := PageOf(key)
	ttl := ttlFor(c.cfg, page)
	now := time.Now().UTC()

	ent, found := c.lookup(ctx, key)
	age := now.Sub(ent.cachedAt)

	if found && age <= ttl {
		c.recordHit()
		metrics.RecordCacheHit(label(page))
		return &Result{Payload: ent.payload, Age: age}, nil
	}

	if found {
		c.recordExpired()
		metrics.RecordCacheExpired(label(page))
	} else {
		c.recordMiss()
		metrics.RecordCacheMiss(label(page))
	}

	loader, loadable := c.loaderFor(page)
	if loadable && c.isOnline() {
		payload, err := c.populate(ctx, key, loader)
		if err == nil {
			return &Result{Payload: payload}, nil
		}
		if !found {
			return nil, err
		}
		logging.Warn().Err(err).Str("cache_key", key).Msg("Page reload failed, serving stale entry")
	}

	if found {
		c.recordStaleServed()
		metrics.RecordCacheStaleServed(label(page))
		return &Result{Payload: ent.payload, Age: age, Stale: true}, nil
	}

	return nil, errs.New(errs.NotFound, op, "page "+key+" not cached")
}

// Set stamps the payload with the current time in memory and persists it
// through the backing store.
func (c *Cache) Set(ctx context.Context, key string, payload []byte) error {
	now := time.Now().UTC()

	c.mu.Lock()
	c.entries[key] = entry{payload: payload, cachedAt: now}
	total := int64(len(c.entries))
	c.mu.Unlock()
	c.setTotalKeys(total)

	return c.backing.SetPageCache(ctx, models.PageCacheEntry{
		CacheKey: key,
		Payload:  payload,
		CachedAt: now,
	})
}

// Invalidate removes one key from both layers. Missing keys are a no-op.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	c.recordEviction()
	return c.backing.DeletePageCache(ctx, key)
}

// Clear drops every in-memory entry. Persistent rows are untouched; the
// logout cascade clears those through the store's purge.
func (c *Cache) Clear() {
	c.mu.Lock()
	evicted := int64(len(c.entries))
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.stats.mu.Lock()
	c.stats.Evictions += evicted
	c.stats.TotalKeys = 0
	c.stats.mu.Unlock()
}

// TTLFor reports the TTL governing a cache key.
func (c *Cache) TTLFor(key string) time.Duration {
	return ttlFor(c.cfg, PageOf(key))
}

// IsStale reports whether a persisted entry is past the given TTL.
func IsStale(e models.PageCacheEntry, ttl time.Duration) bool {
	return time.Since(e.CachedAt) > ttl
}

// GetStats returns a snapshot of the cache counters.
func (c *Cache) GetStats() Stats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()

	return Stats{
		Hits:        c.stats.Hits,
		Misses:      c.stats.Misses,
		Expired:     c.stats.Expired,
		StaleServed: c.stats.StaleServed,
		Loads:       c.stats.Loads,
		Evictions:   c.stats.Evictions,
		TotalKeys:   c.stats.TotalKeys,
		LastCleanup: c.stats.LastCleanup,
	}
}

// HitRate returns the fresh-hit rate as a percentage. Expired entries count
// against it even when they were served stale.
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses + stats.Expired
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// lookup reads memory first and falls back to the persistent row, promoting
// it into memory. The store is advisory here: a read failure is logged and
// treated as a miss.
func (c *Cache) lookup(ctx context.Context, key string) (entry, bool) {
	c.mu.RLock()
	ent, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return ent, true
	}

	stored, err := c.backing.GetPageCache(ctx, key)
	if err != nil {
		if !errs.IsNotFound(err) {
			logging.Warn().Err(err).Str("cache_key", key).Msg("Page cache read failed")
		}
		return entry{}, false
	}

	ent = entry{payload: stored.Payload, cachedAt: stored.CachedAt}

	c.mu.Lock()
	c.entries[key] = ent
	total := int64(len(c.entries))
	c.mu.Unlock()
	c.setTotalKeys(total)

	return ent, true
}

// populate runs the loader and stamps its payload into both layers.
func (c *Cache) populate(ctx context.Context, key string, loader Loader) ([]byte, error) {
	payload, err := loader(ctx, key)
	if err != nil {
		return nil, err
	}

	c.recordLoad()
	if err := c.Set(ctx, key, payload); err != nil {
		// A freshly loaded page is still good even if persisting it failed.
		logging.Warn().Err(err).Str("cache_key", key).Msg("Failed to persist reloaded page")
	}
	return payload, nil
}

func (c *Cache) loaderFor(page Page) (Loader, bool) {
	c.loaderMu.RLock()
	defer c.loaderMu.RUnlock()
	fn, ok := c.loaders[page]
	return fn, ok && fn != nil
}

func (c *Cache) isOnline() bool {
	if c.online == nil {
		return true
	}
	return c.online()
}

// cleanupLoop periodically removes expired entries from memory.
func (c *Cache) cleanupLoop() {
	defer close(c.cleanupDone)

	ticker := time.NewTicker(cleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.cleanupStop:
			return
		}
	}
}

// cleanup prunes in-memory entries past their TTL. The persistent rows stay
// so an offline reader can still be served stale.
func (c *Cache) cleanup() {
	now := time.Now().UTC()

	c.mu.Lock()
	evicted := int64(0)
	for key, ent := range c.entries {
		if now.Sub(ent.cachedAt) > ttlFor(c.cfg, PageOf(key)) {
			delete(c.entries, key)
			evicted++
		}
	}
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.stats.mu.Lock()
	c.stats.Evictions += evicted
	c.stats.TotalKeys = total
	c.stats.LastCleanup = now
	c.stats.mu.Unlock()
}

func (c *Cache) recordHit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
}

func (c *Cache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}

func (c *Cache) recordExpired() {
	c.stats.mu.Lock()
	c.stats.Expired++
	c.stats.mu.Unlock()
}

func (c *Cache) recordStaleServed() {
	c.stats.mu.Lock()
	c.stats.StaleServed++
	c.stats.mu.Unlock()
}

func (c *Cache) recordLoad() {
	c.stats.mu.Lock()
	c.stats.Loads++
	c.stats.mu.Unlock()
}

func (c *Cache) recordEviction() {
	c.stats.mu.Lock()
	c.stats.Evictions++
	c.stats.mu.Unlock()
}

func (c *Cache) setTotalKeys(total int64) {
	c.stats.mu.Lock()
	c.stats.TotalKeys = total
	c.stats.mu.Unlock()
}
