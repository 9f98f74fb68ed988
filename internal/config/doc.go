// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

/*
Package config provides centralized configuration management for Capturehub.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file (CONFIG_PATH, ./config.yaml or /etc/capturehub/config.yaml), then
environment variables. Only variables listed in the mapping table are read.

# Configuration Structure

  - ServerConfig: HTTP listener and timeouts
  - StorageConfig: Binary Store directory and public URL prefix
  - CatalogConfig: persistence backend (badger or file)
  - IngestConfig: pipeline queue, fetch budget and shutdown drain
  - SessionConfig: NATS JetStream connection, subjects and payload fetching
  - SecurityConfig: CORS origins and rate limiting
  - LoggingConfig: zerolog level, format and caller

# Example config.yaml

	server:
	  port: 8080
	storage:
	  media_dir: /data/media
	catalog:
	  backend: file
	  dir: /data/catalog
	session:
	  embedded: false
	  nats_url: nats://nats:4222
	security:
	  cors_origins: [https://viewer.example.com]

# Environment Variables

  - HTTP_HOST, HTTP_PORT, HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_IDLE_TIMEOUT
  - SHUTDOWN_TIMEOUT, METRICS_ENABLED
  - MEDIA_DIR, FILES_PREFIX
  - CATALOG_BACKEND, CATALOG_DIR, CATALOG_BADGER_PATH, CATALOG_SYNC_WRITES,
    CATALOG_COMPRESSION, CATALOG_GC_INTERVAL
  - INGEST_QUEUE_SIZE, INGEST_FETCH_TIMEOUT, INGEST_MAX_NAME_ATTEMPTS,
    INGEST_SKIP_FROM_ME, INGEST_DRAIN_TIMEOUT
  - SESSION_ENABLED, NATS_URL, NATS_EMBEDDED, NATS_HOST, NATS_PORT,
    NATS_STORE_DIR, NATS_STREAM, NATS_STREAM_MAX_AGE, NATS_DURABLE_NAME,
    NATS_QUEUE_GROUP, NATS_ACK_WAIT, NATS_MAX_DELIVER,
    SESSION_MESSAGES_TOPIC, SESSION_STATE_TOPIC
  - FETCH_TIMEOUT, FETCH_MAX_BYTES, FETCH_RATE, FETCH_BURST,
    FETCH_FAILURE_THRESHOLD, FETCH_BREAKER_TIMEOUT
  - CORS_ORIGINS (comma-separated), RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW,
    DISABLE_RATE_LIMIT
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Validation

Load() returns an error for out-of-range ports and limits, an unknown
catalog backend, a malformed NATS URL or an invalid stream name.
*/
package config
