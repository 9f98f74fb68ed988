// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/capturehub/internal/catalog"
	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/models"
)

// MaxRequestBodyBytes caps JSON request bodies.
const MaxRequestBodyBytes = 64 << 10

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// writeJSON sends a JSON response. API responses describe live catalog
// state and are never cached.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// writeError sends {"error": message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

// catalogStatus maps a catalog error to its HTTP status and client message.
// Persistence and unexpected failures are reported without internal detail.
func catalogStatus(err error) (int, string) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, catalog.ErrNotFound.Error()
	case errors.Is(err, catalog.ErrUnknownAlbum):
		return http.StatusNotFound, catalog.ErrUnknownAlbum.Error()
	case errors.Is(err, catalog.ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, catalog.ErrAlreadyExists):
		return http.StatusConflict, catalog.ErrAlreadyExists.Error()
	case errors.Is(err, catalog.ErrDuplicateID):
		return http.StatusConflict, catalog.ErrDuplicateID.Error()
	case errors.Is(err, catalog.ErrPersistence):
		return http.StatusInternalServerError, "failed to save catalog"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeCatalogError is the single place catalog errors become responses.
func writeCatalogError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, message := catalogStatus(err)

	logger := logging.Ctx(r.Context())
	event := logger.Debug()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("op", op).
		Int("status", status).
		Str("path", sanitizeLogValue(r.URL.Path)).
		Msg("Catalog request failed")

	writeError(w, status, message)
}

var errBodyTooLarge = errors.New("request body too large")

// readBody reads a size-limited, non-empty request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("request body is required")
	}
	return data, nil
}

// decodeJSON reads a size-limited JSON body into v. Unknown fields are
// ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	data, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

// writeDecodeError answers a body that could not be decoded.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
