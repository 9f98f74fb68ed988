// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/models"
)

// Keys of the two catalog records.
var (
	keyMedia  = []byte("catalog:media")
	keyAlbums = []byte("catalog:albums")
)

// BadgerConfig configures the BadgerDB catalog store.
type BadgerConfig struct {
	// Path is the BadgerDB directory.
	Path string
	// SyncWrites fsyncs every commit. Disable only in tests.
	SyncWrites bool
	// Compression enables Snappy compression of the value log.
	Compression bool
	// InMemory runs BadgerDB without touching disk (tests only).
	InMemory bool
}

// BadgerPersister stores the two catalog records as full JSON documents in
// BadgerDB, both written in a single transaction so they can never diverge.
type BadgerPersister struct {
	db  *badger.DB
	cfg BadgerConfig
}

// OpenBadger opens (or creates) the BadgerDB catalog store.
func OpenBadger(cfg BadgerConfig) (*BadgerPersister, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, errors.New("badger path is required")
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	// Two small keys: keep the memtable and value log small.
	opts.MemTableSize = 8 << 20
	opts.ValueLogFileSize = 64 << 20
	opts.NumCompactors = 2
	if cfg.Compression {
		opts.Compression = options.Snappy
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Bool("in_memory", cfg.InMemory).
		Msg("Catalog store opened")

	return &BadgerPersister{db: db, cfg: cfg}, nil
}

// Backend implements Persister.
func (p *BadgerPersister) Backend() string { return "badger" }

// Load implements Persister.
func (p *BadgerPersister) Load(_ context.Context) (*Snapshot, error) {
	snap := &Snapshot{Albums: models.Albums{}}
	err := p.db.View(func(txn *badger.Txn) error {
		if err := readJSON(txn, keyMedia, &snap.Media); err != nil {
			return err
		}
		return readJSON(txn, keyAlbums, &snap.Albums)
	})
	if err != nil {
		return nil, err
	}
	if snap.Albums == nil {
		snap.Albums = models.Albums{}
	}
	return snap, nil
}

// readJSON decodes key into v; a missing key leaves v untouched.
func readJSON(txn *badger.Txn, key []byte, v interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return fmt.Errorf("unmarshal %s: %w", key, err)
		}
		return nil
	})
}

// Save implements Persister.
func (p *BadgerPersister) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	media := snap.Media
	if media == nil {
		media = []*models.MediaEntry{}
	}
	mediaJSON, err := json.Marshal(media)
	if err != nil {
		return fmt.Errorf("marshal media: %w", err)
	}
	albumsJSON, err := json.Marshal(snap.Albums)
	if err != nil {
		return fmt.Errorf("marshal albums: %w", err)
	}

	return p.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(keyMedia, mediaJSON); err != nil {
			return fmt.Errorf("set media: %w", err)
		}
		if err := txn.Set(keyAlbums, albumsJSON); err != nil {
			return fmt.Errorf("set albums: %w", err)
		}
		return nil
	})
}

// RunGC reclaims value log space. Each Save rewrites both records, so
// stale versions accumulate; call periodically.
func (p *BadgerPersister) RunGC() error {
	err := p.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Close implements Persister.
func (p *BadgerPersister) Close() error {
	return p.db.Close()
}
