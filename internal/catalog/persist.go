// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package catalog

import (
	"context"

	"github.com/tomtom215/capturehub/internal/models"
)

// Snapshot is the full durable catalog state: the media collection and the
// album map, always written together and in full.
type Snapshot struct {
	Media  []*models.MediaEntry
	Albums models.Albums
}

// Persister stores catalog snapshots.
//
// Save must be durable when it returns nil. Load returns an empty snapshot
// (not an error) when nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	// Backend names the implementation for logs and metrics.
	Backend() string
	Close() error
}
