// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vikingsync/config.yaml",
	"/etc/vikingsync/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every optional setting defaulted.
// Defaults load first and are overridden by file and environment layers.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      "",
			Timeout:      30 * time.Second,
			ProbeTimeout: 5 * time.Second,
			UserAgent:    "vikingsync",
		},
		OAuth: OAuthConfig{
			ClientID:    "",
			RedirectURL: "", // Defaults to the loopback server's /oauth/callback
			FrontendURL: "http://localhost:3000",
		},
		Store: StoreConfig{
			Backend:         "auto",
			Dir:             "./data",
			DuckDBMaxMemory: "512MB",
			DuckDBThreads:   0, // 0 = use runtime.NumCPU()
			BadgerGCPeriod:  10 * time.Minute,
		},
		Cache: CacheConfig{
			StartupTTL:     60 * time.Minute,
			EventsTTL:      30 * time.Minute,
			SectionsTTL:    30 * time.Minute,
			EventDetailTTL: 15 * time.Minute,
		},
		Governor: GovernorConfig{
			SpacingFloor:        100 * time.Millisecond,
			QueueCapacity:       256,
			BatchSize:           5,
			BatchPause:          500 * time.Millisecond,
			RetryInitial:        1 * time.Second,
			RetryMax:            30 * time.Second,
			RetryAttempts:       3,
			RateLimitRequeueCap: 5,
		},
		Sync: SyncConfig{
			Auto:             true,
			AutoInterval:     30 * time.Minute,
			WindowPastDays:   7,
			WindowFutureDays: 90,
			FlexiWhitelist:   []string{"Viking Event Mgmt", "Viking Section Movers"},
		},
		Connectivity: ConnectivityConfig{
			ProbeInterval:     30 * time.Second,
			ProbeMaxInterval:  5 * time.Minute,
			BackoffMultiplier: 1.5,
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "127.0.0.1",
			Port:            3917,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		App: AppConfig{
			Version:  "dev",
			DemoMode: false,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// The returned Config has passed Validate.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first readable config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when they arrive
// via environment variables.
var sliceConfigPaths = []string{
	"sync.flexi_whitelist",
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Values that arrived as YAML lists are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped, so the process environment
// cannot pollute configuration.
//
// Examples:
//   - API_URL -> api.base_url
//   - OAUTH_CLIENT_ID -> oauth.client_id
//   - DEMO_MODE -> app.demo_mode
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Upstream API
		"api_url":           "api.base_url",
		"api_timeout":       "api.timeout",
		"api_probe_timeout": "api.probe_timeout",
		"api_user_agent":    "api.user_agent",

		// OAuth
		"oauth_client_id":     "oauth.client_id",
		"oauth_client_secret": "oauth.client_secret",
		"oauth_auth_url":      "oauth.auth_url",
		"oauth_token_url":     "oauth.token_url",
		"oauth_redirect_url":  "oauth.redirect_url",
		"frontend_url":        "oauth.frontend_url",

		// Local store
		"store_backend":     "store.backend",
		"store_dir":         "store.dir",
		"duckdb_max_memory": "store.duckdb_max_memory",
		"duckdb_threads":    "store.duckdb_threads",
		"badger_gc_period":  "store.badger_gc_period",

		// Page cache TTLs
		"cache_startup_ttl":      "cache.startup_ttl",
		"cache_events_ttl":       "cache.events_ttl",
		"cache_sections_ttl":     "cache.sections_ttl",
		"cache_event_detail_ttl": "cache.event_detail_ttl",

		// Governor
		"governor_spacing_floor":          "governor.spacing_floor",
		"governor_queue_capacity":         "governor.queue_capacity",
		"governor_batch_size":             "governor.batch_size",
		"governor_batch_pause":            "governor.batch_pause",
		"governor_retry_initial":          "governor.retry_initial",
		"governor_retry_max":              "governor.retry_max",
		"governor_retry_attempts":         "governor.retry_attempts",
		"governor_rate_limit_requeue_cap": "governor.rate_limit_requeue_cap",

		// Sync
		"sync_auto":               "sync.auto",
		"sync_auto_interval":      "sync.auto_interval",
		"sync_window_past_days":   "sync.window_past_days",
		"sync_window_future_days": "sync.window_future_days",
		"sync_flexi_whitelist":    "sync.flexi_whitelist",

		// Connectivity
		"probe_interval":           "connectivity.probe_interval",
		"probe_max_interval":       "connectivity.probe_max_interval",
		"probe_backoff_multiplier": "connectivity.backoff_multiplier",

		// Loopback server
		"http_enabled":        "server.enabled",
		"http_host":           "server.host",
		"http_port":           "server.port",
		"http_timeout":        "server.timeout",
		"rate_limit_requests": "server.rate_limit_reqs",
		"rate_limit_window":   "server.rate_limit_window",
		"cors_origins":        "server.cors_origins",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// App identity and mode
		"app_version": "app.version",
		"sentry_dsn":  "app.sentry_dsn",
		"demo_mode":   "app.demo_mode",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// WatchConfigFile watches path and invokes callback on changes. The caller
// owns mutex protection around any reload it performs.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
