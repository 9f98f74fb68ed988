// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package catalog

import "errors"

// Sentinel errors returned by catalog operations. Match with errors.Is;
// returned errors wrap these with the offending id or name.
var (
	// ErrNotFound: the referenced media entry does not exist.
	ErrNotFound = errors.New("media not found")

	// ErrAlreadyExists: an album with that name already exists.
	ErrAlreadyExists = errors.New("album already exists")

	// ErrUnknownAlbum: the referenced album does not exist.
	ErrUnknownAlbum = errors.New("unknown album")

	// ErrDuplicateID: an entry with that id is already cataloged.
	ErrDuplicateID = errors.New("duplicate media id")

	// ErrBadRequest: a required field is missing or malformed.
	ErrBadRequest = errors.New("bad request")

	// ErrPersistence: the durable write failed; the mutation was not applied.
	ErrPersistence = errors.New("catalog persistence failed")
)
