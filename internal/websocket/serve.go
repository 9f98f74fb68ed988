// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/metrics"
)

// NewUpgrader returns an upgrader that accepts the given origins. "*" allows
// any origin. Requests without an Origin header are rejected: browsers always
// send one.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return &websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				logging.Warn().Msg("websocket connection rejected: missing Origin header")
				return false
			}
			if allowAll || allowed[origin] {
				return true
			}
			logging.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
			return false
		},
	}
}

// ServeWS upgrades the request and registers the connection with hub. The
// upgrader writes the HTTP error response when the upgrade fails.
func ServeWS(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		logging.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(hub, conn)
	if !hub.register(client) {
		_ = conn.Close()
		return
	}
	client.Start()
}
