// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

/*
Package catalog is the authoritative registry of captured media entries and
albums.

# Consistency

The Catalog serializes every mutation behind one write lock:

	lock -> validate -> clone state -> apply -> persist -> swap -> notify -> unlock

State is copy-on-write. If persisting the new version fails the clone is
discarded, the caller gets ErrPersistence and listeners hear nothing, so the
in-memory catalog never runs ahead of disk. Readers (List, ListAlbums, Get)
take the read lock and always see exactly one committed version.

Album membership is kept in both directions: entry.Album == name if and only
if albums[name] contains entry.ID. Open re-checks this on load and repairs
any drift left by an interrupted write.

# Persistence

Two records are rewritten in full on every mutation: the media collection
and the album map. Two Persister backends exist:

  - BadgerPersister: keys catalog:media and catalog:albums in BadgerDB,
    written in one transaction with SyncWrites
  - FilePersister: media.json and albums.json, each replaced via
    temp file + fsync + rename

# Binaries

Delete persists the removal before deleting the binary. Reconcile, run at
startup before ingestion begins, drops entries whose binary vanished and
deletes binaries no entry references.
*/
package catalog
