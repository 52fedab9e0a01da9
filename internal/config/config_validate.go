// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateOAuth(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateGovernor(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateConnectivity(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_URL is required")
	}
	if err := validateHTTPURL(c.API.BaseURL, "API_URL"); err != nil {
		return err
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if c.API.ProbeTimeout <= 0 {
		return fmt.Errorf("API_PROBE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateOAuth() error {
	// Demo mode browses bundled fixtures and never reaches the token
	// endpoint, so it may run without an OAuth client.
	if c.OAuth.ClientID == "" && !c.App.DemoMode {
		return fmt.Errorf("OAUTH_CLIENT_ID is required")
	}
	urls := []struct {
		field string
		value string
	}{
		{"OAUTH_AUTH_URL", c.OAuth.AuthURL},
		{"OAUTH_TOKEN_URL", c.OAuth.TokenURL},
		{"OAUTH_REDIRECT_URL", c.OAuth.RedirectURL},
		{"FRONTEND_URL", c.OAuth.FrontendURL},
	}
	for _, u := range urls {
		if u.value == "" {
			continue
		}
		parsed, err := url.Parse(u.value)
		if err != nil {
			return fmt.Errorf("%s failed to parse URL: %w", u.field, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s scheme must be http or https, got: %s", u.field, parsed.Scheme)
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "auto", "duckdb", "badger":
	default:
		return fmt.Errorf("STORE_BACKEND must be auto, duckdb, or badger, got: %s", c.Store.Backend)
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("STORE_DIR must not be empty")
	}
	if c.Store.DuckDBThreads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	return nil
}

func (c *Config) validateGovernor() error {
	g := c.Governor
	if g.SpacingFloor < 0 {
		return fmt.Errorf("GOVERNOR_SPACING_FLOOR must not be negative")
	}
	if g.QueueCapacity < 1 {
		return fmt.Errorf("GOVERNOR_QUEUE_CAPACITY must be at least 1")
	}
	if g.BatchSize < 1 {
		return fmt.Errorf("GOVERNOR_BATCH_SIZE must be at least 1")
	}
	if g.RetryAttempts < 0 {
		return fmt.Errorf("GOVERNOR_RETRY_ATTEMPTS must not be negative")
	}
	if g.RetryInitial <= 0 || g.RetryMax < g.RetryInitial {
		return fmt.Errorf("governor retry intervals must satisfy 0 < GOVERNOR_RETRY_INITIAL <= GOVERNOR_RETRY_MAX")
	}
	if g.RateLimitRequeueCap < 1 {
		return fmt.Errorf("GOVERNOR_RATE_LIMIT_REQUEUE_CAP must be at least 1")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.WindowPastDays < 0 {
		return fmt.Errorf("SYNC_WINDOW_PAST_DAYS must not be negative")
	}
	if c.Sync.WindowFutureDays < 0 {
		return fmt.Errorf("SYNC_WINDOW_FUTURE_DAYS must not be negative")
	}
	if c.Sync.Auto && c.Sync.AutoInterval <= 0 {
		return fmt.Errorf("SYNC_AUTO_INTERVAL must be positive when SYNC_AUTO=true")
	}
	return nil
}

func (c *Config) validateConnectivity() error {
	cc := c.Connectivity
	if cc.ProbeInterval <= 0 {
		return fmt.Errorf("PROBE_INTERVAL must be positive")
	}
	if cc.ProbeMaxInterval < cc.ProbeInterval {
		return fmt.Errorf("PROBE_MAX_INTERVAL must be at least PROBE_INTERVAL")
	}
	if cc.BackoffMultiplier < 1.0 {
		return fmt.Errorf("PROBE_BACKOFF_MULTIPLIER must be at least 1.0")
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, got: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got: %s", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL validates that a URL is a plain http(s) base URL: scheme,
// host, no query. A bare trailing slash is tolerated.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}
	return nil
}
