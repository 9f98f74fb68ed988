// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/capturehub/internal/blobstore"
	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/metrics"
)

// ReconcileReport lists what Reconcile removed.
type ReconcileReport struct {
	// MissingBinaries are ids of entries dropped because their file was gone.
	MissingBinaries []string `json:"missing_binaries"`
	// OrphanBinaries are file names deleted because no entry referenced them.
	OrphanBinaries []string `json:"orphan_binaries"`
	// FailedDeletes counts orphan files that could not be removed.
	FailedDeletes int `json:"failed_deletes"`
}

// Clean reports whether nothing needed fixing.
func (r *ReconcileReport) Clean() bool {
	return len(r.MissingBinaries) == 0 && len(r.OrphanBinaries) == 0 && r.FailedDeletes == 0
}

// Reconcile restores entry/binary pairing after a crash: entries whose
// binary is missing are removed (one persisted write), then binaries no
// entry references are deleted.
//
// A binary written by an in-flight ingestion is not yet referenced, so
// Reconcile must run before the ingest pipeline starts.
func (c *Catalog) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	if c.blobs == nil {
		return nil, errors.New("reconcile requires a blob store")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	report := &ReconcileReport{}

	names, err := c.blobs.List()
	if err != nil {
		return nil, fmt.Errorf("list binaries: %w", err)
	}
	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}

	next := c.cur.clone()
	albumChanged := false
	referenced := make(map[string]bool, len(next.entries))
	for _, id := range c.cur.order {
		e := next.entries[id]
		if present[e.File] {
			referenced[e.File] = true
			continue
		}
		report.MissingBinaries = append(report.MissingBinaries, id)
		next.remove(id)
		if e.Album != nil && next.removeMember(*e.Album, id) {
			albumChanged = true
		}
	}

	if len(report.MissingBinaries) > 0 {
		if err := c.commit(ctx, opReconcile, next); err != nil {
			return nil, err
		}
		for _, id := range report.MissingBinaries {
			metrics.RecordInconsistency("missing_binary")
			c.notifier.MediaDeleted(id)
		}
		if albumChanged {
			c.notifier.AlbumsChanged(next.albums.Clone())
		}
	}

	for _, name := range names {
		if referenced[name] {
			continue
		}
		metrics.RecordInconsistency("orphan_binary")
		if err := c.blobs.Delete(name); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			report.FailedDeletes++
			logging.Ctx(ctx).Warn().Err(err).Str("file", name).Msg("Failed to delete orphan binary")
			continue
		}
		report.OrphanBinaries = append(report.OrphanBinaries, name)
	}

	event := logging.Ctx(ctx).Info()
	if !report.Clean() {
		event = logging.Ctx(ctx).Warn()
	}
	event.
		Int("missing_binaries", len(report.MissingBinaries)).
		Int("orphan_binaries", len(report.OrphanBinaries)).
		Int("failed_deletes", report.FailedDeletes).
		Msg("Catalog reconciled with binary store")

	return report, nil
}
