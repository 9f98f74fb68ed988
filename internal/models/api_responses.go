// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package models

import "time"

// ErrorResponse is the body of every non-2xx API response.
//
//	{"error": "media not found"}
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse acknowledges a mutation that returns no data.
//
//	{"success": true}
type SuccessResponse struct {
	Success bool `json:"success"`
}

// AlbumsResponse is returned by album mutations with the album map after
// the change.
//
//	{"success": true, "albums": {"trip": ["0f8fad5b-..."]}}
type AlbumsResponse struct {
	Success bool   `json:"success"`
	Albums  Albums `json:"albums"`
}

// MediaResponse is returned by POST /media/{id}/album with the updated entry.
type MediaResponse struct {
	Success bool        `json:"success"`
	Media   *MediaEntry `json:"media"`
}

// CreateAlbumRequest is the body of POST /album.
type CreateAlbumRequest struct {
	Name string `json:"name" validate:"required,albumname"`
}

// SessionStatus describes the messaging session connection as last reported
// by the session adapter.
//
//	{"state": "closed", "reason": "logged out", "since": "2026-10-15T09:30:00Z"}
type SessionStatus struct {
	State  string    `json:"state"`
	Reason string    `json:"reason,omitempty"`
	Since  time.Time `json:"since"`
}

// HealthStatus is returned by /healthz and /readyz.
type HealthStatus struct {
	Status  string         `json:"status"`
	Checks  map[string]any `json:"checks,omitempty"`
	Uptime  string         `json:"uptime,omitempty"`
	Version string         `json:"version,omitempty"`
}
