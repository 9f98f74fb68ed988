// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/capturehub/internal/blobstore"
	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/metrics"
	"github.com/tomtom215/capturehub/internal/models"
)

// Mutation labels for catalog_mutations_total.
const (
	opInsert      = "insert"
	opDelete      = "delete"
	opCreateAlbum = "create_album"
	opDeleteAlbum = "delete_album"
	opAssignAlbum = "assign_album"
	opReconcile   = "reconcile"
)

// Notifier receives committed catalog changes. Calls happen while the
// catalog write lock is held, in commit order, so implementations must
// return quickly and must not call back into the catalog.
type Notifier interface {
	MediaAdded(entry *models.MediaEntry)
	MediaDeleted(id string)
	MediaUpdated(entry *models.MediaEntry)
	AlbumsChanged(albums models.Albums)
}

// BlobStore is the part of the binary store the catalog needs to keep
// entries and binaries paired.
type BlobStore interface {
	Delete(name string) error
	Exists(name string) (bool, error)
	List() ([]string, error)
}

type nopNotifier struct{}

func (nopNotifier) MediaAdded(*models.MediaEntry)   {}
func (nopNotifier) MediaDeleted(string)             {}
func (nopNotifier) MediaUpdated(*models.MediaEntry) {}
func (nopNotifier) AlbumsChanged(models.Albums)     {}

// state is an immutable catalog version. Mutations build a new state from a
// clone and swap it in only after it has been persisted.
type state struct {
	entries map[string]*models.MediaEntry
	order   []string // ids sorted by CapturedAt, then id
	albums  models.Albums
}

func emptyState() *state {
	return &state{
		entries: make(map[string]*models.MediaEntry),
		albums:  make(models.Albums),
	}
}

func (s *state) clone() *state {
	c := &state{
		entries: make(map[string]*models.MediaEntry, len(s.entries)),
		order:   make([]string, len(s.order)),
		albums:  s.albums.Clone(),
	}
	for id, e := range s.entries {
		c.entries[id] = e.Clone()
	}
	copy(c.order, s.order)
	return c
}

func (s *state) less(a, b *models.MediaEntry) bool {
	if !a.CapturedAt.Equal(b.CapturedAt) {
		return a.CapturedAt.Before(b.CapturedAt)
	}
	return a.ID < b.ID
}

func (s *state) add(e *models.MediaEntry) {
	s.entries[e.ID] = e
	i := sort.Search(len(s.order), func(i int) bool {
		return s.less(e, s.entries[s.order[i]])
	})
	s.order = append(s.order, "")
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = e.ID
}

func (s *state) remove(id string) {
	delete(s.entries, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// removeMember drops id from the named album, reporting whether it was there.
func (s *state) removeMember(name, id string) bool {
	members, ok := s.albums[name]
	if !ok {
		return false
	}
	for i, m := range members {
		if m == id {
			s.albums[name] = append(members[:i:i], members[i+1:]...)
			return true
		}
	}
	return false
}

func (s *state) snapshot() *Snapshot {
	media := make([]*models.MediaEntry, 0, len(s.order))
	for _, id := range s.order {
		media = append(media, s.entries[id])
	}
	return &Snapshot{Media: media, Albums: s.albums}
}

// Catalog is the single owner of all media entries and albums.
//
// Every mutation holds one write lock across compute, persist, swap and
// notify, so mutations from the ingest pipeline and the API never interleave
// and listeners see them in commit order. Readers take the read lock and get
// deep copies of one committed version.
type Catalog struct {
	mu        sync.RWMutex
	cur       *state
	persister Persister
	blobs     BlobStore
	notifier  Notifier

	// pending maps binaries whose entry is gone but whose delete failed
	// to the id of that entry. Guarded by mu.
	pending map[string]string
}

// Open loads the persisted catalog (an empty one when nothing is stored),
// repairs album cross-references and returns a ready Catalog. blobs may be
// nil only in tests that never delete; notifier may be nil.
func Open(ctx context.Context, p Persister, blobs BlobStore, n Notifier) (*Catalog, error) {
	if p == nil {
		return nil, errors.New("catalog persister is required")
	}
	if n == nil {
		n = nopNotifier{}
	}

	snap, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog (%s): %w", p.Backend(), err)
	}

	st, repaired := stateFromSnapshot(snap)
	c := &Catalog{
		cur:       st,
		persister: p,
		blobs:     blobs,
		notifier:  n,
		pending:   make(map[string]string),
	}

	if repaired > 0 {
		logging.Warn().
			Int("repairs", repaired).
			Str("backend", p.Backend()).
			Msg("Repaired album cross-references in loaded catalog")
		metrics.CatalogInconsistencies.WithLabelValues("dangling_album_ref").Add(float64(repaired))
		if err := c.persist(ctx, st); err != nil {
			return nil, err
		}
	}

	metrics.UpdateCatalogGauges(len(st.entries), len(st.albums))
	logging.Info().
		Int("entries", len(st.entries)).
		Int("albums", len(st.albums)).
		Str("backend", p.Backend()).
		Msg("Catalog loaded")

	return c, nil
}

// stateFromSnapshot builds a state and enforces album bidirectionality,
// returning how many references had to be fixed.
func stateFromSnapshot(snap *Snapshot) (*state, int) {
	st := emptyState()
	if snap == nil {
		return st, 0
	}
	repaired := 0

	for name := range snap.Albums {
		st.albums[name] = []string{}
	}
	for _, e := range snap.Media {
		if e == nil || e.ID == "" {
			repaired++
			continue
		}
		if _, dup := st.entries[e.ID]; dup {
			repaired++
			continue
		}
		st.add(e.Clone())
	}

	// Keep persisted member order where it agrees with the entries.
	for name, members := range snap.Albums {
		seen := make(map[string]bool, len(members))
		for _, id := range members {
			e, ok := st.entries[id]
			if !ok || seen[id] || !e.InAlbum(name) {
				repaired++
				continue
			}
			seen[id] = true
			st.albums[name] = append(st.albums[name], id)
		}
	}
	for _, id := range st.order {
		e := st.entries[id]
		if e.Album == nil {
			continue
		}
		if !st.albums.Has(*e.Album) {
			e.Album = nil
			repaired++
			continue
		}
		if !st.albums.Contains(*e.Album, id) {
			st.albums[*e.Album] = append(st.albums[*e.Album], id)
			repaired++
		}
	}
	return st, repaired
}

// SetNotifier replaces the change listener.
func (c *Catalog) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	c.mu.Lock()
	c.notifier = n
	c.mu.Unlock()
}

// persist writes next through the persister. Must be called with mu held.
func (c *Catalog) persist(ctx context.Context, next *state) error {
	start := time.Now()
	err := c.persister.Save(ctx, next.snapshot())
	metrics.RecordCatalogPersist(c.persister.Backend(), time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// commit persists next and swaps it in. On failure the current state is left
// untouched. Must be called with mu held.
func (c *Catalog) commit(ctx context.Context, op string, next *state) error {
	if err := c.persist(ctx, next); err != nil {
		metrics.RecordCatalogMutation(op, "persist_failed")
		logging.Ctx(ctx).Error().Err(err).Str("operation", op).Msg("Catalog mutation rolled back")
		return err
	}
	c.cur = next
	metrics.RecordCatalogMutation(op, "ok")
	metrics.UpdateCatalogGauges(len(next.entries), len(next.albums))
	return nil
}

func reject(op string, err error) error {
	metrics.RecordCatalogMutation(op, "rejected")
	return err
}

// Insert adds a new entry. The entry's Album, if set, must name an existing
// album. The catalog keeps its own copy of entry.
func (c *Catalog) Insert(ctx context.Context, entry *models.MediaEntry) error {
	if entry == nil || entry.ID == "" {
		return reject(opInsert, fmt.Errorf("%w: media id is required", ErrBadRequest))
	}
	if !entry.Kind.Valid() {
		return reject(opInsert, fmt.Errorf("%w: unsupported media kind %q", ErrBadRequest, entry.Kind))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cur.entries[entry.ID]; exists {
		return reject(opInsert, fmt.Errorf("%w: %s", ErrDuplicateID, entry.ID))
	}
	if entry.Album != nil && !c.cur.albums.Has(*entry.Album) {
		return reject(opInsert, fmt.Errorf("%w: %s", ErrUnknownAlbum, *entry.Album))
	}

	next := c.cur.clone()
	stored := entry.Clone()
	next.add(stored)
	if stored.Album != nil {
		next.albums[*stored.Album] = append(next.albums[*stored.Album], stored.ID)
	}

	if err := c.commit(ctx, opInsert, next); err != nil {
		return err
	}

	c.notifier.MediaAdded(stored.Clone())
	if stored.Album != nil {
		c.notifier.AlbumsChanged(next.albums.Clone())
	}
	return nil
}

// Delete removes an entry, its album membership and its binary.
//
// The removal is persisted before the binary is deleted, so a crash or a
// failing delete can leave an orphan binary but never a listed entry without
// its binary. A failed delete is retried by RetryBinaryDeletes; a crash
// leaves the binary for Reconcile. A binary that is already gone is
// logged as an inconsistency; the entry removal still succeeds.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cur.entries[id]
	if !ok {
		return reject(opDelete, fmt.Errorf("%w: %s", ErrNotFound, id))
	}

	next := c.cur.clone()
	next.remove(id)
	albumChanged := false
	if entry.Album != nil {
		albumChanged = next.removeMember(*entry.Album, id)
	}

	if err := c.commit(ctx, opDelete, next); err != nil {
		return err
	}

	c.deleteBinary(ctx, entry)

	c.notifier.MediaDeleted(id)
	if albumChanged {
		c.notifier.AlbumsChanged(next.albums.Clone())
	}
	return nil
}

func (c *Catalog) deleteBinary(ctx context.Context, entry *models.MediaEntry) {
	if c.blobs == nil {
		return
	}
	err := c.blobs.Delete(entry.File)
	switch {
	case err == nil:
	case errors.Is(err, blobstore.ErrNotFound):
		metrics.RecordInconsistency("missing_binary")
		logging.Ctx(ctx).Warn().
			Str("media_id", entry.ID).
			Str("file", entry.File).
			Msg("Binary already missing for deleted entry")
	default:
		metrics.RecordInconsistency("orphan_binary")
		c.pending[entry.File] = entry.ID
		metrics.CatalogPendingDeletes.Set(float64(len(c.pending)))
		logging.Ctx(ctx).Error().Err(err).
			Str("media_id", entry.ID).
			Str("file", entry.File).
			Msg("Failed to delete binary; queued for retry")
	}
}

// CreateAlbum creates an empty album and returns the album map after the
// change. An existing name yields ErrAlreadyExists.
func (c *Catalog) CreateAlbum(ctx context.Context, name string) (models.Albums, error) {
	if strings.TrimSpace(name) == "" {
		return nil, reject(opCreateAlbum, fmt.Errorf("%w: album name is required", ErrBadRequest))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur.albums.Has(name) {
		return nil, reject(opCreateAlbum, fmt.Errorf("%w: %s", ErrAlreadyExists, name))
	}

	next := c.cur.clone()
	next.albums[name] = []string{}

	if err := c.commit(ctx, opCreateAlbum, next); err != nil {
		return nil, err
	}

	c.notifier.AlbumsChanged(next.albums.Clone())
	return next.albums.Clone(), nil
}

// DeleteAlbum removes an album and clears it from all of its members.
func (c *Catalog) DeleteAlbum(ctx context.Context, name string) (models.Albums, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	members, ok := c.cur.albums[name]
	if !ok {
		return nil, reject(opDeleteAlbum, fmt.Errorf("%w: %s", ErrUnknownAlbum, name))
	}

	next := c.cur.clone()
	delete(next.albums, name)
	updated := make([]*models.MediaEntry, 0, len(members))
	for _, id := range members {
		if e, ok := next.entries[id]; ok {
			e.Album = nil
			updated = append(updated, e)
		}
	}

	if err := c.commit(ctx, opDeleteAlbum, next); err != nil {
		return nil, err
	}

	for _, e := range updated {
		c.notifier.MediaUpdated(e.Clone())
	}
	c.notifier.AlbumsChanged(next.albums.Clone())
	return next.albums.Clone(), nil
}

// AssignAlbum moves an entry into the named album, or clears its album when
// album is nil. Assigning the album an entry already has is a no-op.
// Returns the updated entry.
func (c *Catalog) AssignAlbum(ctx context.Context, id string, album *string) (*models.MediaEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cur.entries[id]
	if !ok {
		return nil, reject(opAssignAlbum, fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	if album != nil && !c.cur.albums.Has(*album) {
		return nil, reject(opAssignAlbum, fmt.Errorf("%w: %s", ErrUnknownAlbum, *album))
	}

	if sameAlbum(entry.Album, album) {
		metrics.RecordCatalogMutation(opAssignAlbum, "noop")
		return entry.Clone(), nil
	}

	next := c.cur.clone()
	updated := next.entries[id]
	if updated.Album != nil {
		next.removeMember(*updated.Album, id)
	}
	if album == nil {
		updated.Album = nil
	} else {
		updated.Album = models.StringPtr(*album)
		next.albums[*album] = append(next.albums[*album], id)
	}

	if err := c.commit(ctx, opAssignAlbum, next); err != nil {
		return nil, err
	}

	c.notifier.MediaUpdated(updated.Clone())
	c.notifier.AlbumsChanged(next.albums.Clone())
	return updated.Clone(), nil
}

func sameAlbum(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Get returns a copy of one entry.
func (c *Catalog) Get(id string) (*models.MediaEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.cur.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.Clone(), nil
}

// List returns copies of all entries ordered by capture time, then id.
func (c *Catalog) List() []*models.MediaEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*models.MediaEntry, 0, len(c.cur.order))
	for _, id := range c.cur.order {
		out = append(out, c.cur.entries[id].Clone())
	}
	return out
}

// ListAlbums returns a copy of the album map.
func (c *Catalog) ListAlbums() models.Albums {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur.albums.Clone()
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cur.entries)
}

// Close releases the persister.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persister.Close()
}
