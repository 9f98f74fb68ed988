// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

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

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/capturehub/config.yaml",
	"/etc/capturehub/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MetricsEnabled:  true,
		},
		Storage: StorageConfig{
			MediaDir:    "/data/media",
			FilesPrefix: "/files",
		},
		Catalog: CatalogConfig{
			Backend:     CatalogBackendBadger,
			Dir:         "/data/catalog",
			BadgerPath:  "/data/catalog/badger",
			SyncWrites:  true,
			Compression: false,
			GCInterval:  10 * time.Minute,
		},
		Ingest: IngestConfig{
			QueueSize:       64,
			FetchTimeout:    60 * time.Second,
			MaxNameAttempts: 5,
			SkipFromMe:      false,
			DrainTimeout:    15 * time.Second,
		},
		Session: SessionConfig{
			Enabled:       true,
			NATSURL:       "nats://127.0.0.1:4222",
			Embedded:      true,
			EmbeddedHost:  "127.0.0.1",
			EmbeddedPort:  4222,
			StoreDir:      "/data/nats",
			StreamName:    "SESSION",
			StreamMaxAge:  24 * time.Hour,
			DurableName:   "capturehub",
			QueueGroup:    "capturehub",
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			MessagesTopic: "session.messages",
			StateTopic:    "session.state",
			Fetch: FetchConfig{
				Timeout:          30 * time.Second,
				MaxBytes:         64 << 20, // 64MB
				RatePerSecond:    20,
				Burst:            10,
				FailureThreshold: 5,
				BreakerTimeout:   30 * time.Second,
			},
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	//   HTTP_PORT -> server.port
	//   CATALOG_BACKEND -> catalog.backend
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
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

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
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

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from defaults or YAML)
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

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	// Server mappings
	"http_host":          "server.host",
	"http_port":          "server.port",
	"http_read_timeout":  "server.read_timeout",
	"http_write_timeout": "server.write_timeout",
	"http_idle_timeout":  "server.idle_timeout",
	"shutdown_timeout":   "server.shutdown_timeout",
	"metrics_enabled":    "server.metrics_enabled",

	// Storage mappings
	"media_dir":    "storage.media_dir",
	"files_prefix": "storage.files_prefix",

	// Catalog mappings
	"catalog_backend":     "catalog.backend",
	"catalog_dir":         "catalog.dir",
	"catalog_badger_path": "catalog.badger_path",
	"catalog_sync_writes": "catalog.sync_writes",
	"catalog_compression": "catalog.compression",
	"catalog_gc_interval": "catalog.gc_interval",

	// Ingest mappings
	"ingest_queue_size":        "ingest.queue_size",
	"ingest_fetch_timeout":     "ingest.fetch_timeout",
	"ingest_max_name_attempts": "ingest.max_name_attempts",
	"ingest_skip_from_me":      "ingest.skip_from_me",
	"ingest_drain_timeout":     "ingest.drain_timeout",

	// Session / NATS mappings
	"session_enabled":        "session.enabled",
	"nats_url":               "session.nats_url",
	"nats_embedded":          "session.embedded",
	"nats_host":              "session.embedded_host",
	"nats_port":              "session.embedded_port",
	"nats_store_dir":         "session.store_dir",
	"nats_stream":            "session.stream_name",
	"nats_stream_max_age":    "session.stream_max_age",
	"nats_durable_name":      "session.durable_name",
	"nats_queue_group":       "session.queue_group",
	"nats_ack_wait":          "session.ack_wait",
	"nats_max_deliver":       "session.max_deliver",
	"session_messages_topic": "session.messages_topic",
	"session_state_topic":    "session.state_topic",

	// Payload fetch mappings
	"fetch_timeout":           "session.fetch.timeout",
	"fetch_max_bytes":         "session.fetch.max_bytes",
	"fetch_rate":              "session.fetch.rate_per_second",
	"fetch_burst":             "session.fetch.burst",
	"fetch_failure_threshold": "session.fetch.failure_threshold",
	"fetch_breaker_timeout":   "session.fetch.breaker_timeout",

	// Security mappings
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped, so unrelated environment
// variables never pollute the config.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
