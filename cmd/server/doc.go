// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

// Package main is the entry point for the Capturehub server.
//
// Capturehub captures image, video and audio messages arriving on a
// messaging session, stores the binaries, and keeps a catalog of them that
// can be organized into albums over HTTP. Changes are pushed to browsers
// over a websocket.
//
// # Startup Order
//
//  1. Configuration: defaults, optional YAML file, environment (Koanf v2)
//  2. Logging: zerolog with the configured level and format
//  3. Binary Store: MEDIA_DIR
//  4. Catalog: BadgerDB or file backend, then reconcile against the store
//  5. Ingestion pipeline
//  6. Session (optional): embedded or external NATS JetStream, stream
//     provisioning, durable subscriber and the bridge feeding the pipeline
//  7. HTTP server: Catalog API, /files, /ws, /healthz, /readyz, /metrics
//  8. Supervisor tree: everything long-lived runs under suture
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the tree. The HTTP server drains in-flight
// requests within SHUTDOWN_TIMEOUT, the pipeline finishes queued messages
// within INGEST_DRAIN_TIMEOUT, then the catalog backend and the embedded
// NATS server are closed.
//
// # Example Usage
//
// Local, with an embedded NATS server a session adapter can publish to:
//
//	export MEDIA_DIR=./data/media
//	export CATALOG_BADGER_PATH=./data/catalog
//	export NATS_STORE_DIR=./data/nats
//	./capturehub
//
// Against an external NATS cluster, with the JSON file catalog:
//
//	export NATS_EMBEDDED=false
//	export NATS_URL=nats://nats:4222
//	export CATALOG_BACKEND=file
//	export CATALOG_DIR=/data/catalog
//	./capturehub
//
// Catalog only, no session:
//
//	export SESSION_ENABLED=false
//	./capturehub
package main
