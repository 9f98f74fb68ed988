// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.validateCatalog(); err != nil {
		return err
	}

	if err := c.validateIngest(); err != nil {
		return err
	}

	if err := c.validateSession(); err != nil {
		return err
	}

	if err := c.validateDataDirs(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// validateStorage validates the binary store configuration
func (c *Config) validateStorage() error {
	if c.Storage.MediaDir == "" {
		return fmt.Errorf("MEDIA_DIR is required")
	}

	prefix := strings.Trim(c.Storage.FilesPrefix, "/")
	if prefix == "" {
		return fmt.Errorf("FILES_PREFIX must name a path segment, got %q", c.Storage.FilesPrefix)
	}
	if strings.ContainsAny(prefix, "*{}?#") {
		return fmt.Errorf("FILES_PREFIX contains invalid characters: %q", c.Storage.FilesPrefix)
	}
	return nil
}

// validateCatalog validates the catalog backend selection
func (c *Config) validateCatalog() error {
	switch c.Catalog.Backend {
	case CatalogBackendBadger:
		if c.Catalog.BadgerPath == "" {
			return fmt.Errorf("CATALOG_BADGER_PATH is required when CATALOG_BACKEND=badger")
		}
	case CatalogBackendFile:
		if c.Catalog.Dir == "" {
			return fmt.Errorf("CATALOG_DIR is required when CATALOG_BACKEND=file")
		}
	default:
		return fmt.Errorf("CATALOG_BACKEND must be one of: badger, file (got %q)", c.Catalog.Backend)
	}

	if c.Catalog.GCInterval < 0 {
		return fmt.Errorf("CATALOG_GC_INTERVAL must not be negative")
	}
	return nil
}

// validateDataDirs keeps state directories out of the media directory.
// Every file in MEDIA_DIR is a servable binary, and startup reconciliation
// deletes the ones the catalog does not reference.
func (c *Config) validateDataDirs() error {
	type dataDir struct {
		env  string
		path string
	}
	var dirs []dataDir
	switch c.Catalog.Backend {
	case CatalogBackendBadger:
		dirs = append(dirs, dataDir{"CATALOG_BADGER_PATH", c.Catalog.BadgerPath})
	case CatalogBackendFile:
		dirs = append(dirs, dataDir{"CATALOG_DIR", c.Catalog.Dir})
	}
	if c.Session.Enabled && c.Session.Embedded {
		dirs = append(dirs, dataDir{"NATS_STORE_DIR", c.Session.StoreDir})
	}

	for _, d := range dirs {
		if pathsOverlap(c.Storage.MediaDir, d.path) {
			return fmt.Errorf("%s (%q) must not be, contain, or sit inside MEDIA_DIR (%q)",
				d.env, d.path, c.Storage.MediaDir)
		}
	}
	return nil
}

// pathsOverlap reports whether a and b are the same directory or one is
// nested in the other.
func pathsOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	a, b = absClean(a), absClean(b)
	return isWithin(a, b) || isWithin(b, a)
}

func absClean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// isWithin reports whether path equals dir or lies below it.
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// validateIngest validates the ingestion pipeline configuration
func (c *Config) validateIngest() error {
	if c.Ingest.QueueSize < 1 || c.Ingest.QueueSize > 100000 {
		return fmt.Errorf("INGEST_QUEUE_SIZE must be between 1 and 100000")
	}
	if c.Ingest.FetchTimeout <= 0 {
		return fmt.Errorf("INGEST_FETCH_TIMEOUT must be positive")
	}
	if c.Ingest.MaxNameAttempts < 1 {
		return fmt.Errorf("INGEST_MAX_NAME_ATTEMPTS must be at least 1")
	}
	if c.Ingest.DrainTimeout < 0 {
		return fmt.Errorf("INGEST_DRAIN_TIMEOUT must not be negative")
	}
	return nil
}

// validateSession validates the session connection (only if enabled)
func (c *Config) validateSession() error {
	s := c.Session
	if !s.Enabled {
		return nil
	}

	if s.Embedded {
		if s.StoreDir == "" {
			return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
		}
		if s.EmbeddedPort < 1 || s.EmbeddedPort > 65535 {
			return fmt.Errorf("NATS_PORT must be between 1 and 65535")
		}
	} else {
		if s.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when NATS_EMBEDDED=false")
		}
		if err := validateNATSURL(s.NATSURL); err != nil {
			return fmt.Errorf("NATS_URL: %w", err)
		}
	}

	if err := validateStreamName(s.StreamName); err != nil {
		return err
	}
	if s.DurableName == "" {
		return fmt.Errorf("NATS_DURABLE_NAME is required")
	}
	if s.MessagesTopic == "" || s.StateTopic == "" {
		return fmt.Errorf("SESSION_MESSAGES_TOPIC and SESSION_STATE_TOPIC are required")
	}
	if s.MessagesTopic == s.StateTopic {
		return fmt.Errorf("SESSION_MESSAGES_TOPIC and SESSION_STATE_TOPIC must differ")
	}
	if s.MaxDeliver < 1 {
		return fmt.Errorf("NATS_MAX_DELIVER must be at least 1")
	}
	if s.AckWait < time.Second {
		return fmt.Errorf("NATS_ACK_WAIT must be at least 1s")
	}

	return c.validateFetch()
}

// validateStreamName rejects names JetStream refuses.
func validateStreamName(name string) error {
	if name == "" {
		return fmt.Errorf("NATS_STREAM is required")
	}
	if strings.ContainsAny(name, ".*> \t") {
		return fmt.Errorf("NATS_STREAM must not contain '.', '*', '>' or whitespace (got %q)", name)
	}
	return nil
}

// validateFetch validates payload download limits
func (c *Config) validateFetch() error {
	f := c.Session.Fetch
	if f.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if f.MaxBytes < 1 {
		return fmt.Errorf("FETCH_MAX_BYTES must be positive")
	}
	if f.RatePerSecond <= 0 || f.Burst < 1 {
		return fmt.Errorf("FETCH_RATE must be positive and FETCH_BURST at least 1")
	}
	if f.FailureThreshold < 1 {
		return fmt.Errorf("FETCH_FAILURE_THRESHOLD must be at least 1")
	}
	return nil
}

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	if len(c.Security.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must list at least one origin (use * to allow all)")
	}
	return c.validateRateLimits()
}

// Rate limit bounds
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// HasWildcardCORS reports whether any origin may call the API and open /ws.
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
