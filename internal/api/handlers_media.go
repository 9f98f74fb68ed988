// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/models"
)

// ListMedia returns every catalog entry, oldest first.
//
// GET /media
func (h *Handler) ListMedia(w http.ResponseWriter, _ *http.Request) {
	entries := h.catalog.List()
	if entries == nil {
		entries = []*models.MediaEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetMedia returns one entry.
//
// GET /media/{id}
func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := h.catalog.Get(id)
	if err != nil {
		writeCatalogError(w, r, "get_media", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DeleteMedia removes an entry and its stored binary.
//
// DELETE /media/{id}
func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.catalog.Delete(r.Context(), id); err != nil {
		writeCatalogError(w, r, "delete_media", err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("media_id", sanitizeLogValue(id)).Msg("Media deleted")
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// AssignAlbum moves an entry into an album, or clears its album when the
// body is {"album": null}.
//
// POST /media/{id}/album
func (h *Handler) AssignAlbum(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, err := readBody(w, r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	req, err := parseAssignAlbumRequest(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.catalog.AssignAlbum(r.Context(), id, req.Album)
	if err != nil {
		writeCatalogError(w, r, "assign_album", err)
		return
	}

	writeJSON(w, http.StatusOK, models.MediaResponse{Success: true, Media: entry})
}
