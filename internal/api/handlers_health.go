// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/capturehub/internal/models"
	"github.com/tomtom215/capturehub/internal/session"
)

// Health handles liveness probes. It returns 200 while the process is
// serving requests, with catalog and session details for operators.
//
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]any{}
	if h.catalog != nil {
		checks["media_entries"] = h.catalog.Len()
		checks["albums"] = len(h.catalog.ListAlbums())
	}
	if h.wsHub != nil {
		checks["ws_clients"] = h.wsHub.GetClientCount()
	}
	if h.session != nil {
		checks["session"] = h.session.SessionStatus().State
	}

	writeJSON(w, http.StatusOK, models.HealthStatus{
		Status:  "ok",
		Checks:  checks,
		Uptime:  h.uptime(),
		Version: h.version,
	})
}

// Ready handles readiness probes. The service is ready once the catalog is
// loaded; a disconnected session degrades the status without failing the
// probe since the catalog API keeps working.
//
// GET /readyz
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]any{
		"catalog_loaded": h.catalog != nil,
	}

	if h.catalog == nil {
		writeJSON(w, http.StatusServiceUnavailable, models.HealthStatus{
			Status:  "not_ready",
			Checks:  checks,
			Version: h.version,
		})
		return
	}

	status := "ready"
	if h.session != nil {
		state := h.session.SessionStatus().State
		checks["session"] = state
		if state != session.StateOpen {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, models.HealthStatus{
		Status:  status,
		Checks:  checks,
		Uptime:  h.uptime(),
		Version: h.version,
	})
}

// Session returns the last reported messaging session state.
//
// GET /session
func (h *Handler) Session(w http.ResponseWriter, _ *http.Request) {
	if h.session == nil {
		writeError(w, http.StatusNotFound, "messaging session not configured")
		return
	}
	writeJSON(w, http.StatusOK, h.session.SessionStatus())
}

func (h *Handler) uptime() string {
	return time.Since(h.startTime).Truncate(time.Second).String()
}
