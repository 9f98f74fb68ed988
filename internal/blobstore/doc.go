// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

// Package blobstore stores captured media binaries as flat files addressed
// by generated file name.
//
// The store sits on spf13/afero: production opens a base-path filesystem over
// the OS (storage.media_dir), tests use an in-memory filesystem. Writes are
// exclusive-create so a name is never silently overwritten, and a failed
// write leaves nothing behind.
//
//	store, err := blobstore.Open("/var/lib/capturehub/media")
//	err = store.Write("image-1760000000000000000.jpg", payload)
//	if errors.Is(err, blobstore.ErrAlreadyExists) {
//	    // generate a new name and retry
//	}
//
// HTTPFileSystem serves the same files read-only for the static file route.
package blobstore
