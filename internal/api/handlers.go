// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/capturehub/internal/models"
	ws "github.com/tomtom215/capturehub/internal/websocket"
)

// Catalog is the subset of *catalog.Catalog the API uses.
type Catalog interface {
	List() []*models.MediaEntry
	Get(id string) (*models.MediaEntry, error)
	Delete(ctx context.Context, id string) error
	ListAlbums() models.Albums
	CreateAlbum(ctx context.Context, name string) (models.Albums, error)
	DeleteAlbum(ctx context.Context, name string) (models.Albums, error)
	AssignAlbum(ctx context.Context, id string, album *string) (*models.MediaEntry, error)
	Len() int
}

// SessionStatusProvider reports the messaging session connection state.
// *ingest.Pipeline implements it.
type SessionStatusProvider interface {
	SessionStatus() models.SessionStatus
}

// HandlerConfig carries the non-dependency settings of a Handler.
type HandlerConfig struct {
	// Version is reported by /healthz.
	Version string

	// WSAllowedOrigins lists the Origins allowed to open /ws. "*" allows all.
	WSAllowedOrigins []string
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_helpers.go: JSON and error helpers
//   - handlers_media.go: media endpoints
//   - handlers_album.go: album endpoints
//   - handlers_health.go: health, readiness and session endpoints
type Handler struct {
	catalog   Catalog
	wsHub     *ws.Hub
	upgrader  *websocket.Upgrader
	session   SessionStatusProvider
	version   string
	startTime time.Time
}

// NewHandler creates a new API handler. session may be nil when no
// messaging session is configured.
//
//	handler := api.NewHandler(cat, hub, pipeline, api.HandlerConfig{Version: version})
//	router := api.NewRouter(handler, api.RouterConfig{Files: blobs.HTTPFileSystem()})
//	http.ListenAndServe(":8080", router.SetupChi())
func NewHandler(cat Catalog, hub *ws.Hub, session SessionStatusProvider, cfg HandlerConfig) *Handler {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		catalog:   cat,
		wsHub:     hub,
		upgrader:  ws.NewUpgrader(cfg.WSAllowedOrigins),
		session:   session,
		version:   version,
		startTime: time.Now(),
	}
}

// WebSocket upgrades the connection and registers it with the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		writeError(w, http.StatusServiceUnavailable, "live updates unavailable")
		return
	}
	ws.ServeWS(h.wsHub, h.upgrader, w, r)
}
