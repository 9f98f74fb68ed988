// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package catalog

import (
	"context"
	"errors"
	"sort"

	"github.com/tomtom215/capturehub/internal/blobstore"
	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/metrics"
)

// RetryBinaryDeletes retries every binary delete that failed during Delete
// and returns how many are still pending. A binary that has disappeared in
// the meantime counts as deleted. Unlike Reconcile it only touches files
// the catalog itself gave up on, so it is safe while ingestion is running.
func (c *Catalog) RetryBinaryDeletes(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 || c.blobs == nil {
		return len(c.pending)
	}

	files := make([]string, 0, len(c.pending))
	for file := range c.pending {
		files = append(files, file)
	}
	sort.Strings(files)

	referenced := make(map[string]bool, len(c.cur.entries))
	for _, e := range c.cur.entries {
		referenced[e.File] = true
	}

	for _, file := range files {
		id := c.pending[file]
		if referenced[file] {
			// Reused by a newer entry; no longer ours to delete.
			delete(c.pending, file)
			continue
		}
		err := c.blobs.Delete(file)
		if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			logging.Ctx(ctx).Warn().Err(err).
				Str("media_id", id).
				Str("file", file).
				Msg("Binary delete retry failed")
			continue
		}
		delete(c.pending, file)
		logging.Ctx(ctx).Info().
			Str("media_id", id).
			Str("file", file).
			Msg("Deleted binary on retry")
	}

	metrics.CatalogPendingDeletes.Set(float64(len(c.pending)))
	return len(c.pending)
}

// PendingBinaryDeletes returns the files waiting for a delete retry, sorted.
func (c *Catalog) PendingBinaryDeletes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	files := make([]string, 0, len(c.pending))
	for file := range c.pending {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}
