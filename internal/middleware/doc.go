// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

// Package middleware provides HTTP middleware shared by the Catalog API.
//
//   - RequestID: request/correlation IDs for logging.Ctx
//   - PrometheusMetrics: api_requests_total and latency by chi route pattern
//
// Both are standard func(http.Handler) http.Handler values and are mounted
// with chi's r.Use in the API router.
package middleware
