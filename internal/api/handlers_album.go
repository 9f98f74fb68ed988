// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/capturehub/internal/catalog"
	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/models"
	"github.com/tomtom215/capturehub/internal/validation"
)

// ListAlbums returns the album map: name to member ids.
//
// GET /albums
func (h *Handler) ListAlbums(w http.ResponseWriter, _ *http.Request) {
	albums := h.catalog.ListAlbums()
	if albums == nil {
		albums = models.Albums{}
	}
	writeJSON(w, http.StatusOK, albums)
}

// CreateAlbum creates an empty album. Creating an album that already exists
// succeeds and returns the current albums unchanged.
//
// POST /album
func (h *Handler) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAlbumRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}

	albums, err := h.catalog.CreateAlbum(r.Context(), req.Name)
	switch {
	case errors.Is(err, catalog.ErrAlreadyExists):
		albums = h.catalog.ListAlbums()
	case err != nil:
		writeCatalogError(w, r, "create_album", err)
		return
	default:
		logging.Ctx(r.Context()).Info().Str("album", sanitizeLogValue(req.Name)).Msg("Album created")
	}

	writeJSON(w, http.StatusOK, models.AlbumsResponse{Success: true, Albums: albums})
}

// DeleteAlbum removes an album and unassigns its members.
//
// DELETE /album/{name}
func (h *Handler) DeleteAlbum(w http.ResponseWriter, r *http.Request) {
	name, err := albumParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid album name")
		return
	}

	albums, err := h.catalog.DeleteAlbum(r.Context(), name)
	if err != nil {
		writeCatalogError(w, r, "delete_album", err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("album", sanitizeLogValue(name)).Msg("Album deleted")
	writeJSON(w, http.StatusOK, models.AlbumsResponse{Success: true, Albums: albums})
}

// albumParam returns the decoded {name} segment. chi routes on RawPath when
// the request carries one, leaving escapes such as %2F in the parameter.
func albumParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			return "", err
		}
		name = unescaped
	}
	if name == "" {
		return "", errors.New("empty album name")
	}
	return name, nil
}
