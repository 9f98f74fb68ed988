// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	server := http.Server{Addr: cfg.Server.Addr()}
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Session  SessionConfig  `koanf:"session"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
//
// Environment Variables:
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8080)
//   - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_IDLE_TIMEOUT
//   - SHUTDOWN_TIMEOUT: Graceful shutdown budget (default: 30s)
//   - METRICS_ENABLED: Serve GET /metrics (default: true)
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MetricsEnabled  bool          `koanf:"metrics_enabled"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StorageConfig holds Binary Store settings.
//
// Environment Variables:
//   - MEDIA_DIR: Directory holding captured binaries (default: /data/media)
//   - FILES_PREFIX: URL prefix binaries are served under (default: /files)
type StorageConfig struct {
	MediaDir    string `koanf:"media_dir"`
	FilesPrefix string `koanf:"files_prefix"`
}

// CatalogConfig selects and tunes the catalog persistence backend.
//
// Environment Variables:
//   - CATALOG_BACKEND: badger or file (default: badger)
//   - CATALOG_DIR: Directory for the file backend (default: /data/catalog)
//   - CATALOG_BADGER_PATH: BadgerDB directory (default: /data/catalog/badger)
//   - CATALOG_SYNC_WRITES: fsync every BadgerDB commit (default: true)
//   - CATALOG_COMPRESSION: Snappy-compress the BadgerDB value log (default: false)
//   - CATALOG_GC_INTERVAL: interval of failed binary delete retries and BadgerDB value log GC, 0 disables (default: 10m)
type CatalogConfig struct {
	Backend     string        `koanf:"backend"`
	Dir         string        `koanf:"dir"`
	BadgerPath  string        `koanf:"badger_path"`
	SyncWrites  bool          `koanf:"sync_writes"`
	Compression bool          `koanf:"compression"`
	GCInterval  time.Duration `koanf:"gc_interval"`
}

// Catalog backends.
const (
	CatalogBackendBadger = "badger"
	CatalogBackendFile   = "file"
)

// IngestConfig tunes the ingestion pipeline.
//
// Environment Variables:
//   - INGEST_QUEUE_SIZE: Messages buffered before the bridge blocks (default: 64)
//   - INGEST_FETCH_TIMEOUT: Per-payload retrieval budget (default: 60s)
//   - INGEST_MAX_NAME_ATTEMPTS: Filename regenerations on collision (default: 5)
//   - INGEST_SKIP_FROM_ME: Ignore messages sent by the session account (default: false)
//   - INGEST_DRAIN_TIMEOUT: Shutdown budget for queued messages (default: 15s)
type IngestConfig struct {
	QueueSize       int           `koanf:"queue_size"`
	FetchTimeout    time.Duration `koanf:"fetch_timeout"`
	MaxNameAttempts int           `koanf:"max_name_attempts"`
	SkipFromMe      bool          `koanf:"skip_from_me"`
	DrainTimeout    time.Duration `koanf:"drain_timeout"`
}

// SessionConfig connects the pipeline to the messaging session adapter
// through NATS JetStream.
//
// Environment Variables:
//   - SESSION_ENABLED: Consume session events (default: true)
//   - NATS_URL: NATS server URL (default: nats://127.0.0.1:4222)
//   - NATS_EMBEDDED: Run a JetStream server in-process (default: true)
//   - NATS_HOST, NATS_PORT: Embedded server listen address
//   - NATS_STORE_DIR: Embedded JetStream storage (default: /data/nats)
//   - NATS_STREAM: Stream holding session subjects (default: SESSION)
//   - NATS_STREAM_MAX_AGE: Stream retention (default: 24h)
//   - NATS_DURABLE_NAME, NATS_QUEUE_GROUP: Consumer identity
//   - NATS_ACK_WAIT, NATS_MAX_DELIVER: Redelivery policy
//   - SESSION_MESSAGES_TOPIC, SESSION_STATE_TOPIC: Subjects
//   - FETCH_TIMEOUT, FETCH_MAX_BYTES, FETCH_RATE, FETCH_BURST,
//     FETCH_FAILURE_THRESHOLD, FETCH_BREAKER_TIMEOUT: Payload downloads
type SessionConfig struct {
	Enabled       bool          `koanf:"enabled"`
	NATSURL       string        `koanf:"nats_url"`
	Embedded      bool          `koanf:"embedded"`
	EmbeddedHost  string        `koanf:"embedded_host"`
	EmbeddedPort  int           `koanf:"embedded_port"`
	StoreDir      string        `koanf:"store_dir"`
	StreamName    string        `koanf:"stream_name"`
	StreamMaxAge  time.Duration `koanf:"stream_max_age"`
	DurableName   string        `koanf:"durable_name"`
	QueueGroup    string        `koanf:"queue_group"`
	AckWait       time.Duration `koanf:"ack_wait"`
	MaxDeliver    int           `koanf:"max_deliver"`
	MessagesTopic string        `koanf:"messages_topic"`
	StateTopic    string        `koanf:"state_topic"`
	Fetch         FetchConfig   `koanf:"fetch"`
}

// FetchConfig tunes payload downloads from the session adapter.
type FetchConfig struct {
	Timeout          time.Duration `koanf:"timeout"`
	MaxBytes         int64         `koanf:"max_bytes"`
	RatePerSecond    float64       `koanf:"rate_per_second"`
	Burst            int           `koanf:"burst"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

// SecurityConfig holds browser-facing access settings
//
// Environment Variables:
//   - CORS_ORIGINS: Comma-separated allowed origins for the API and /ws (default: *)
//   - RATE_LIMIT_REQUESTS: Requests per window per client IP (default: 300)
//   - RATE_LIMIT_WINDOW: Rate limit window (default: 1m)
//   - DISABLE_RATE_LIMIT: Turn rate limiting off (default: false)
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging configuration
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Load loads configuration from:
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Environment variables
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
