// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package catalog

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tomtom215/capturehub/internal/models"
)

func TestScenario_IngestAlbumAssignDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	entry := f.addMedia(t, 1, models.MediaKindImage)

	list := f.cat.List()
	if len(list) != 1 || list[0].Kind != models.MediaKindImage || list[0].Album != nil {
		t.Fatalf("after ingest: %+v", list)
	}
	if list[0].Sender != "111@s.whatsapp.net" {
		t.Errorf("sender = %q", list[0].Sender)
	}

	albums, err := f.cat.CreateAlbum(ctx, "trip")
	if err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	if members, ok := albums["trip"]; !ok || len(members) != 0 {
		t.Fatalf("albums = %v, want trip: []", albums)
	}

	updated, err := f.cat.AssignAlbum(ctx, entry.ID, models.StringPtr("trip"))
	if err != nil {
		t.Fatalf("AssignAlbum: %v", err)
	}
	if updated.AlbumName() != "trip" {
		t.Errorf("entry album = %q", updated.AlbumName())
	}
	if !f.cat.ListAlbums().Contains("trip", entry.ID) {
		t.Error("album does not contain entry")
	}
	checkInvariants(t, f.cat, f.store)

	if err := f.cat.Delete(ctx, entry.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.cat.Len() != 0 {
		t.Errorf("expected empty catalog, got %d entries", f.cat.Len())
	}
	if ok, _ := f.store.Exists(entry.File); ok {
		t.Error("binary still present after delete")
	}
	if f.cat.ListAlbums().Contains("trip", entry.ID) {
		t.Error("album still contains deleted entry")
	}
	checkInvariants(t, f.cat, f.store)

	want := []string{
		"added:id-001",
		"albums",
		"updated:id-001:trip",
		"albums",
		"deleted:id-001",
		"albums",
	}
	if got := f.rec.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("notifications = %v, want %v", got, want)
	}
}

func TestAssignAlbum_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	entry := f.addMedia(t, 1, models.MediaKindVideo)
	if _, err := f.cat.CreateAlbum(ctx, "trip"); err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	beforeList, beforeAlbums := f.cat.List(), f.cat.ListAlbums()
	beforeSaves := f.p.saveCount()

	if _, err := f.cat.AssignAlbum(ctx, "unknown", models.StringPtr("trip")); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}
	if _, err := f.cat.AssignAlbum(ctx, entry.ID, models.StringPtr("nope")); !errors.Is(err, ErrUnknownAlbum) {
		t.Errorf("unknown album: err = %v, want ErrUnknownAlbum", err)
	}

	if !reflect.DeepEqual(beforeList, f.cat.List()) || !reflect.DeepEqual(beforeAlbums, f.cat.ListAlbums()) {
		t.Error("failed assignment changed state")
	}
	if f.p.saveCount() != beforeSaves {
		t.Error("failed assignment persisted")
	}
}

func TestAssignAlbum_MoveAndClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	e := f.addMedia(t, 1, models.MediaKindAudio)
	for _, name := range []string{"a", "b"} {
		if _, err := f.cat.CreateAlbum(ctx, name); err != nil {
			t.Fatalf("CreateAlbum: %v", err)
		}
	}

	if _, err := f.cat.AssignAlbum(ctx, e.ID, models.StringPtr("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cat.AssignAlbum(ctx, e.ID, models.StringPtr("b")); err != nil {
		t.Fatal(err)
	}
	albums := f.cat.ListAlbums()
	if albums.Contains("a", e.ID) || !albums.Contains("b", e.ID) {
		t.Errorf("after move: %v", albums)
	}
	checkInvariants(t, f.cat, f.store)

	saves := f.p.saveCount()
	if _, err := f.cat.AssignAlbum(ctx, e.ID, models.StringPtr("b")); err != nil {
		t.Fatal(err)
	}
	if f.p.saveCount() != saves {
		t.Error("re-assigning the same album should not persist")
	}

	got, err := f.cat.AssignAlbum(ctx, e.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Album != nil || f.cat.ListAlbums().Contains("b", e.ID) {
		t.Error("clear did not remove membership")
	}
	checkInvariants(t, f.cat, f.store)
}

func TestCreateAlbum_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.cat.CreateAlbum(ctx, ""); !errors.Is(err, ErrBadRequest) {
		t.Errorf("empty name: %v", err)
	}
	if _, err := f.cat.CreateAlbum(ctx, "  "); !errors.Is(err, ErrBadRequest) {
		t.Errorf("blank name: %v", err)
	}
	if _, err := f.cat.CreateAlbum(ctx, "trip"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cat.CreateAlbum(ctx, "trip"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate: %v", err)
	}
}

func TestInsert_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	e := f.addMedia(t, 1, models.MediaKindImage)

	dup := e.Clone()
	if err := f.cat.Insert(ctx, dup); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate id: %v", err)
	}
	if err := f.cat.Insert(ctx, &models.MediaEntry{Kind: models.MediaKindImage}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("missing id: %v", err)
	}
	if err := f.cat.Insert(ctx, &models.MediaEntry{ID: "x", Kind: "sticker"}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("bad kind: %v", err)
	}
	if err := f.cat.Insert(ctx, &models.MediaEntry{ID: "y", Kind: models.MediaKindImage, Album: models.StringPtr("nope")}); !errors.Is(err, ErrUnknownAlbum) {
		t.Errorf("unknown album: %v", err)
	}
	if f.cat.Len() != 1 {
		t.Errorf("rejected inserts changed state: %d entries", f.cat.Len())
	}
}

func TestInsert_CopiesEntry(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	e := f.addMedia(t, 1, models.MediaKindImage)
	e.Sender = "mutated"

	got, err := f.cat.Get(e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Sender != "111@s.whatsapp.net" {
		t.Error("catalog shares memory with caller's entry")
	}
	got.Sender = "mutated again"
	if again, _ := f.cat.Get(e.ID); again.Sender != "111@s.whatsapp.net" {
		t.Error("Get returned shared memory")
	}
}

func TestDelete_NotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if err := f.cat.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if len(f.rec.list()) != 0 {
		t.Error("rejected delete notified")
	}
}

func TestDelete_MissingBinaryStillRemovesEntry(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	e := f.addMedia(t, 1, models.MediaKindImage)
	if err := f.store.Delete(e.File); err != nil {
		t.Fatal(err)
	}

	if err := f.cat.Delete(context.Background(), e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.cat.Len() != 0 {
		t.Error("entry not removed")
	}
}

func TestDeleteAlbum(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	e1 := f.addMedia(t, 1, models.MediaKindImage)
	e2 := f.addMedia(t, 2, models.MediaKindImage)
	if _, err := f.cat.CreateAlbum(ctx, "trip"); err != nil {
		t.Fatal(err)
	}
	for _, e := range []*models.MediaEntry{e1, e2} {
		if _, err := f.cat.AssignAlbum(ctx, e.ID, models.StringPtr("trip")); err != nil {
			t.Fatal(err)
		}
	}

	albums, err := f.cat.DeleteAlbum(ctx, "trip")
	if err != nil {
		t.Fatalf("DeleteAlbum: %v", err)
	}
	if albums.Has("trip") {
		t.Error("album still present")
	}
	for _, e := range f.cat.List() {
		if e.Album != nil {
			t.Errorf("entry %s still assigned to %q", e.ID, *e.Album)
		}
	}
	checkInvariants(t, f.cat, f.store)

	if _, err := f.cat.DeleteAlbum(ctx, "trip"); !errors.Is(err, ErrUnknownAlbum) {
		t.Errorf("second delete: %v", err)
	}
}

func TestPersistenceFailure_RollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(f *fixture, e *models.MediaEntry) error
	}{
		{"insert", func(f *fixture, _ *models.MediaEntry) error {
			return f.cat.Insert(ctx, &models.MediaEntry{ID: "new", Kind: models.MediaKindAudio, File: "audio-9.mp3"})
		}},
		{"delete", func(f *fixture, e *models.MediaEntry) error {
			return f.cat.Delete(ctx, e.ID)
		}},
		{"create album", func(f *fixture, _ *models.MediaEntry) error {
			_, err := f.cat.CreateAlbum(ctx, "fresh")
			return err
		}},
		{"assign album", func(f *fixture, e *models.MediaEntry) error {
			_, err := f.cat.AssignAlbum(ctx, e.ID, models.StringPtr("trip"))
			return err
		}},
		{"delete album", func(f *fixture, _ *models.MediaEntry) error {
			_, err := f.cat.DeleteAlbum(ctx, "trip")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			e := f.addMedia(t, 1, models.MediaKindImage)
			if _, err := f.cat.CreateAlbum(ctx, "trip"); err != nil {
				t.Fatal(err)
			}

			beforeList, beforeAlbums := f.cat.List(), f.cat.ListAlbums()
			beforeEvents := len(f.rec.list())

			f.p.failOnce(errDiskFull)
			err := tt.mutate(f, e)
			if !errors.Is(err, ErrPersistence) || !errors.Is(err, errDiskFull) {
				t.Fatalf("err = %v, want ErrPersistence wrapping cause", err)
			}

			if !reflect.DeepEqual(beforeList, f.cat.List()) || !reflect.DeepEqual(beforeAlbums, f.cat.ListAlbums()) {
				t.Error("in-memory state changed after failed persist")
			}
			if len(f.rec.list()) != beforeEvents {
				t.Error("failed mutation was broadcast")
			}
			if ok, _ := f.store.Exists(e.File); !ok {
				t.Error("binary deleted although the entry removal was not persisted")
			}

			// The catalog stays usable and disk matches memory.
			reopened, err := Open(ctx, f.p, f.store, nil)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(reopened.List(), f.cat.List()) || !reflect.DeepEqual(reopened.ListAlbums(), f.cat.ListAlbums()) {
				t.Error("disk diverged from memory")
			}
		})
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	e1 := f.addMedia(t, 1, models.MediaKindImage)
	f.addMedia(t, 2, models.MediaKindVideo)
	e3 := f.addMedia(t, 3, models.MediaKindAudio)
	if _, err := f.cat.CreateAlbum(ctx, "trip"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cat.CreateAlbum(ctx, "empty"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cat.AssignAlbum(ctx, e3.ID, models.StringPtr("trip")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cat.AssignAlbum(ctx, e1.ID, models.StringPtr("trip")); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(ctx, f.p, f.store, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(reopened.List(), f.cat.List()) {
		t.Errorf("media differ after reload:\n got %+v\nwant %+v", reopened.List(), f.cat.List())
	}
	if !reflect.DeepEqual(reopened.ListAlbums(), f.cat.ListAlbums()) {
		t.Errorf("albums differ after reload: %v vs %v", reopened.ListAlbums(), f.cat.ListAlbums())
	}
	if got := reopened.ListAlbums()["trip"]; !reflect.DeepEqual(got, []string{e3.ID, e1.ID}) {
		t.Errorf("member order not preserved: %v", got)
	}
}

func TestList_OrderedAndIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.addMedia(t, 3, models.MediaKindImage)
	f.addMedia(t, 1, models.MediaKindImage)
	f.addMedia(t, 2, models.MediaKindImage)

	first := f.cat.List()
	second := f.cat.List()
	if !reflect.DeepEqual(first, second) {
		t.Error("List not idempotent")
	}
	for i, want := range []string{"id-001", "id-002", "id-003"} {
		if first[i].ID != want {
			t.Errorf("List()[%d] = %s, want %s", i, first[i].ID, want)
		}
	}
}

func TestOpen_RepairsCrossReferences(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := &memPersister{}
	broken := &Snapshot{
		Media: []*models.MediaEntry{
			{ID: "a", Kind: models.MediaKindImage, File: "image-a.jpg", Album: models.StringPtr("trip")},
			{ID: "b", Kind: models.MediaKindImage, File: "image-b.jpg", Album: models.StringPtr("gone")},
			{ID: "c", Kind: models.MediaKindImage, File: "image-c.jpg"},
		},
		Albums: models.Albums{
			"trip":  {"ghost", "c", "c"},
			"other": {},
		},
	}
	if err := p.Save(ctx, broken); err != nil {
		t.Fatal(err)
	}

	cat, err := Open(ctx, p, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, cat, nil)

	albums := cat.ListAlbums()
	if !reflect.DeepEqual(albums["trip"], []string{"a"}) {
		t.Errorf("trip = %v, want [a]", albums["trip"])
	}
	if b, _ := cat.Get("b"); b.Album != nil {
		t.Errorf("entry b still references missing album %q", *b.Album)
	}
	if p.saveCount() != 2 {
		t.Errorf("expected repaired state to be persisted, saves = %d", p.saveCount())
	}
}

func TestOpen_EmptyState(t *testing.T) {
	t.Parallel()

	cat, err := Open(context.Background(), &memPersister{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Len() != 0 || len(cat.ListAlbums()) != 0 {
		t.Error("expected empty catalog")
	}
	if _, err := Open(context.Background(), nil, nil, nil); err == nil {
		t.Error("expected error without persister")
	}
}
