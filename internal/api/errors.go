// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package api

import "errors"

// Request body errors for POST /media/{id}/album.
var (
	// ErrAlbumFieldMissing indicates the body has no "album" key at all.
	// An explicit null is a valid request and clears the album.
	ErrAlbumFieldMissing = errors.New("album is required (use null to clear)")

	// ErrAlbumFieldEmpty indicates "album" is an empty string.
	ErrAlbumFieldEmpty = errors.New("album must be a non-empty name or null")

	// ErrAlbumFieldType indicates "album" is neither a string nor null.
	ErrAlbumFieldType = errors.New("album must be a string or null")
)
