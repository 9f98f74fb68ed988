// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/capturehub/internal/middleware"
)

// DefaultFilesPrefix is where stored binaries are served.
const DefaultFilesPrefix = "/files"

// RouterConfig configures the route table.
type RouterConfig struct {
	// Middleware configures CORS and rate limiting. Nil uses the defaults.
	Middleware *ChiMiddlewareConfig

	// Files serves stored binaries. Nil disables the files route.
	Files http.FileSystem

	// FilesPrefix is the URL prefix for Files. It must match the prefix
	// the ingestion pipeline writes into entry URLs.
	FilesPrefix string

	// MetricsDisabled removes GET /metrics.
	MetricsDisabled bool
}

// Router wires the Handler into a chi route table.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	files         http.FileSystem
	filesPrefix   string
	metrics       bool
}

// NewRouter creates a router for handler.
func NewRouter(handler *Handler, cfg RouterConfig) *Router {
	prefix := "/" + strings.Trim(cfg.FilesPrefix, "/")
	if prefix == "/" {
		prefix = DefaultFilesPrefix
	}
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(cfg.Middleware),
		files:         cfg.Files,
		filesPrefix:   prefix,
		metrics:       !cfg.MetricsDisabled,
	}
}

// SetupChi configures all HTTP routes using Chi router.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Probes and metrics are not rate limited.
	r.Get("/healthz", router.handler.Health)
	r.Get("/readyz", router.handler.Ready)
	if router.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.Get("/media", router.handler.ListMedia)
		r.Get("/media/{id}", router.handler.GetMedia)
		r.Delete("/media/{id}", router.handler.DeleteMedia)
		r.Post("/media/{id}/album", router.handler.AssignAlbum)

		r.Get("/albums", router.handler.ListAlbums)
		r.Post("/album", router.handler.CreateAlbum)
		r.Delete("/album/{name}", router.handler.DeleteAlbum)

		r.Get("/session", router.handler.Session)
	})

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Get("/ws", router.handler.WebSocket)
	})

	if router.files != nil {
		router.registerFileRoutes(r)
	}

	return r
}

// registerFileRoutes serves stored binaries. Names are unique and never
// rewritten, so responses may be cached indefinitely.
func (router *Router) registerFileRoutes(r chi.Router) {
	fileServer := http.StripPrefix(router.filesPrefix, http.FileServer(router.files))

	r.Get(router.filesPrefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fileServer.ServeHTTP(w, req)
	})
}
