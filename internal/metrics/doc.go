// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

/*
Package metrics provides Prometheus instrumentation for Capturehub.

All collectors are registered with the default registry via promauto and
exposed by the API at GET /metrics.

Metric Families:

	api_requests_total{method,endpoint,status_code}
	api_request_duration_seconds{method,endpoint}
	catalog_mutations_total{operation,result}
	catalog_persist_duration_seconds{backend}
	catalog_entries, catalog_albums
	catalog_inconsistencies_total{kind}
	ingest_events_total{outcome}
	ingest_fetch_duration_seconds
	ingest_bytes_stored_total{kind}
	ingest_queue_depth
	session_state{state}
	session_bridge_messages_total{topic,result}
	websocket_connections
	websocket_broadcasts_dropped_total{reason}
	circuit_breaker_state{name}

Example PromQL:

	# Retrieval failure ratio over 5 minutes
	sum(rate(ingest_events_total{outcome="retrieval_failed"}[5m]))
	  / sum(rate(ingest_events_total[5m]))

	# Persist p99
	histogram_quantile(0.99, rate(catalog_persist_duration_seconds_bucket[5m]))
*/
package metrics
