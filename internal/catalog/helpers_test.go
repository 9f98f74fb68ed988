// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"github.com/tomtom215/capturehub/internal/blobstore"
	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

// memPersister keeps the last saved snapshot as JSON, so loads never share
// memory with the catalog. failNext makes the next Save fail.
type memPersister struct {
	mu       sync.Mutex
	media    []byte
	albums   []byte
	saves    int
	failNext error
}

func (p *memPersister) Backend() string { return "memory" }

func (p *memPersister) Load(context.Context) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := &Snapshot{Albums: models.Albums{}}
	if p.media != nil {
		if err := json.Unmarshal(p.media, &snap.Media); err != nil {
			return nil, err
		}
	}
	if p.albums != nil {
		if err := json.Unmarshal(p.albums, &snap.Albums); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (p *memPersister) Save(_ context.Context, snap *Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return err
	}
	media, err := json.Marshal(snap.Media)
	if err != nil {
		return err
	}
	albums, err := json.Marshal(snap.Albums)
	if err != nil {
		return err
	}
	p.media, p.albums = media, albums
	p.saves++
	return nil
}

func (p *memPersister) Close() error { return nil }

func (p *memPersister) failOnce(err error) {
	p.mu.Lock()
	p.failNext = err
	p.mu.Unlock()
}

func (p *memPersister) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

// recorder captures notifications in order.
type recorder struct {
	mu     sync.Mutex
	events []string
	albums models.Albums
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) MediaAdded(e *models.MediaEntry)   { r.add("added:" + e.ID) }
func (r *recorder) MediaDeleted(id string)            { r.add("deleted:" + id) }
func (r *recorder) MediaUpdated(e *models.MediaEntry) { r.add("updated:" + e.ID + ":" + e.AlbumName()) }
func (r *recorder) AlbumsChanged(a models.Albums) {
	r.mu.Lock()
	r.albums = a
	r.mu.Unlock()
	r.add("albums")
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

var errDiskFull = errors.New("disk full")

type fixture struct {
	cat   *Catalog
	store *blobstore.Store
	p     *memPersister
	rec   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: blobstore.New(afero.NewMemMapFs()),
		p:     &memPersister{},
		rec:   &recorder{},
	}
	cat, err := Open(context.Background(), f.p, f.store, f.rec)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.cat = cat
	return f
}

var baseTime = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

// addMedia writes a binary and inserts its entry, like the ingest pipeline.
func (f *fixture) addMedia(t *testing.T, n int, kind models.MediaKind) *models.MediaEntry {
	t.Helper()

	file := fmt.Sprintf("%s-%d%s", kind, n, kind.Extension())
	if err := f.store.Write(file, []byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entry := &models.MediaEntry{
		ID:         fmt.Sprintf("id-%03d", n),
		Kind:       kind,
		URL:        "/files/" + file,
		File:       file,
		Sender:     "111@s.whatsapp.net",
		CapturedAt: baseTime.Add(time.Duration(n) * time.Second),
	}
	if err := f.cat.Insert(context.Background(), entry); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return entry
}

// checkInvariants asserts atomic pairing and album bidirectionality.
func checkInvariants(t *testing.T, cat *Catalog, store *blobstore.Store) {
	t.Helper()

	entries := cat.List()
	albums := cat.ListAlbums()

	for _, e := range entries {
		if store != nil {
			ok, err := store.Exists(e.File)
			if err != nil || !ok {
				t.Errorf("entry %s references missing binary %s", e.ID, e.File)
			}
		}
		if e.Album != nil {
			if !albums.Has(*e.Album) {
				t.Errorf("entry %s references unknown album %q", e.ID, *e.Album)
			} else if !albums.Contains(*e.Album, e.ID) {
				t.Errorf("album %q missing member %s", *e.Album, e.ID)
			}
		}
	}

	byID := make(map[string]*models.MediaEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	for name, members := range albums {
		seen := map[string]bool{}
		for _, id := range members {
			if seen[id] {
				t.Errorf("album %q lists %s twice", name, id)
			}
			seen[id] = true
			e, ok := byID[id]
			if !ok {
				t.Errorf("album %q lists unknown entry %s", name, id)
				continue
			}
			if !e.InAlbum(name) {
				t.Errorf("album %q lists %s but entry album is %q", name, id, e.AlbumName())
			}
		}
	}
}
