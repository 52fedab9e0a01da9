// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package config holds the layered application configuration.
//
// Loading order (Koanf v2): built-in defaults, then an optional YAML file,
// then environment variables. Environment variables map through an explicit
// table so unrelated process environment never leaks into config. Config is
// immutable after Load and safe for concurrent reads.
package config

import (
	"path/filepath"
	"time"
)

// Config is the root configuration. One instance is loaded at startup and
// shared read-only by every component.
type Config struct {
	API          APIConfig          `koanf:"api"`
	OAuth        OAuthConfig        `koanf:"oauth"`
	Store        StoreConfig        `koanf:"store"`
	Cache        CacheConfig        `koanf:"cache"`
	Governor     GovernorConfig     `koanf:"governor"`
	Sync         SyncConfig         `koanf:"sync"`
	Connectivity ConnectivityConfig `koanf:"connectivity"`
	Server       ServerConfig       `koanf:"server"`
	Logging      LoggingConfig      `koanf:"logging"`
	App          AppConfig          `koanf:"app"`
}

// APIConfig points at the upstream REST API.
//
// Environment Variables:
//   - API_URL: upstream base URL (required)
//   - API_TIMEOUT: per-request timeout (default: 30s)
//   - API_PROBE_TIMEOUT: health-probe timeout (default: 5s)
type APIConfig struct {
	BaseURL      string        `koanf:"base_url"`
	Timeout      time.Duration `koanf:"timeout"`
	ProbeTimeout time.Duration `koanf:"probe_timeout"`
	UserAgent    string        `koanf:"user_agent"`
}

// OAuthConfig holds the authorization-code flow settings. Tokens are
// session-scoped and never persisted, so there is nothing to configure for
// storage.
//
// Environment Variables:
//   - OAUTH_CLIENT_ID: OAuth client id (required)
//   - OAUTH_CLIENT_SECRET: client secret, if the provider requires one
//   - OAUTH_AUTH_URL / OAUTH_TOKEN_URL: provider endpoints; default to the
//     upstream API host when empty
//   - OAUTH_REDIRECT_URL: callback URL; defaults to the loopback server's
//     /oauth/callback
//   - FRONTEND_URL: origin the state parameter resumes to after login
type OAuthConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	AuthURL      string `koanf:"auth_url"`
	TokenURL     string `koanf:"token_url"`
	RedirectURL  string `koanf:"redirect_url"`
	FrontendURL  string `koanf:"frontend_url"`
}

// StoreConfig selects and tunes the local store backend.
//
// Backend "auto" prefers the embedded SQL engine and falls back to the
// keyed object store when the engine cannot open on this platform.
type StoreConfig struct {
	Backend string `koanf:"backend"` // auto, duckdb, badger
	Dir     string `koanf:"dir"`

	DuckDBMaxMemory string        `koanf:"duckdb_max_memory"`
	DuckDBThreads   int           `koanf:"duckdb_threads"` // 0 = runtime.NumCPU()
	BadgerGCPeriod  time.Duration `koanf:"badger_gc_period"`
}

// DuckDBPath returns the embedded SQL database file inside Dir.
func (s StoreConfig) DuckDBPath() string {
	return filepath.Join(s.Dir, "app_store.db")
}

// BadgerDir returns the keyed-object-store directory inside Dir.
func (s StoreConfig) BadgerDir() string {
	return filepath.Join(s.Dir, "badger")
}

// CacheConfig sets the page-cache TTL per cached page kind.
type CacheConfig struct {
	StartupTTL     time.Duration `koanf:"startup_ttl"`
	EventsTTL      time.Duration `koanf:"events_ttl"`
	SectionsTTL    time.Duration `koanf:"sections_ttl"`
	EventDetailTTL time.Duration `koanf:"event_detail_ttl"`
}

// GovernorConfig tunes the upstream request queue.
type GovernorConfig struct {
	SpacingFloor        time.Duration `koanf:"spacing_floor"`
	QueueCapacity       int           `koanf:"queue_capacity"`
	BatchSize           int           `koanf:"batch_size"`
	BatchPause          time.Duration `koanf:"batch_pause"`
	RetryInitial        time.Duration `koanf:"retry_initial"`
	RetryMax            time.Duration `koanf:"retry_max"`
	RetryAttempts       int           `koanf:"retry_attempts"`
	RateLimitRequeueCap int           `koanf:"rate_limit_requeue_cap"`
}

// SyncConfig tunes the two-stage orchestrator.
//
// WindowPastDays/WindowFutureDays bound the displayable event window whose
// attendance is fanned out during background sync; both ends are inclusive.
type SyncConfig struct {
	Auto             bool          `koanf:"auto"`
	AutoInterval     time.Duration `koanf:"auto_interval"`
	WindowPastDays   int           `koanf:"window_past_days"`
	WindowFutureDays int           `koanf:"window_future_days"`
	FlexiWhitelist   []string      `koanf:"flexi_whitelist"`
}

// ConnectivityConfig tunes the reachability monitor's probe cadence.
type ConnectivityConfig struct {
	ProbeInterval     time.Duration `koanf:"probe_interval"`
	ProbeMaxInterval  time.Duration `koanf:"probe_max_interval"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
}

// ServerConfig configures the loopback HTTP server that carries the OAuth
// callback, status endpoints, metrics, and the UI event stream.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"`
}

// AppConfig carries identity and mode flags.
//
// Environment Variables:
//   - APP_VERSION: build version reported on status and User-Agent
//   - SENTRY_DSN: error-report sink DSN; empty disables reporting
//   - DEMO_MODE: when true, demo-flagged records are visible to readers
type AppConfig struct {
	Version   string `koanf:"version"`
	SentryDSN string `koanf:"sentry_dsn"`
	DemoMode  bool   `koanf:"demo_mode"`
}
