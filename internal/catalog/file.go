// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"github.com/tomtom215/capturehub/internal/models"
)

// File names of the two catalog records.
const (
	MediaFile  = "media.json"
	AlbumsFile = "albums.json"
)

// FilePersister stores the catalog as two JSON documents, media.json and
// albums.json. Each is replaced atomically (temp file, fsync, rename).
//
// The pair is not replaced atomically: media.json is written first, so a
// crash in between leaves new media with old albums, which Open repairs.
type FilePersister struct {
	fs afero.Fs
}

// OpenFileStore returns a FilePersister writing into dir on the OS
// filesystem, creating dir if needed.
func OpenFileStore(dir string) (*FilePersister, error) {
	if dir == "" {
		return nil, errors.New("catalog directory is required")
	}
	osfs := afero.NewOsFs()
	if err := osfs.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return NewFilePersister(afero.NewBasePathFs(osfs, dir)), nil
}

// NewFilePersister returns a FilePersister on fs, using its root directory.
func NewFilePersister(fs afero.Fs) *FilePersister {
	return &FilePersister{fs: fs}
}

// Backend implements Persister.
func (p *FilePersister) Backend() string { return "file" }

// Load implements Persister.
func (p *FilePersister) Load(_ context.Context) (*Snapshot, error) {
	snap := &Snapshot{Albums: models.Albums{}}
	if err := p.readJSON(MediaFile, &snap.Media); err != nil {
		return nil, err
	}
	if err := p.readJSON(AlbumsFile, &snap.Albums); err != nil {
		return nil, err
	}
	if snap.Albums == nil {
		snap.Albums = models.Albums{}
	}
	return snap, nil
}

func (p *FilePersister) readJSON(name string, v interface{}) error {
	data, err := afero.ReadFile(p.fs, "/"+name)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}

// Save implements Persister.
func (p *FilePersister) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	media := snap.Media
	if media == nil {
		media = []*models.MediaEntry{}
	}
	mediaJSON, err := json.MarshalIndent(media, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal media: %w", err)
	}
	albumsJSON, err := json.MarshalIndent(snap.Albums, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal albums: %w", err)
	}

	if err := p.replace(MediaFile, mediaJSON); err != nil {
		return err
	}
	return p.replace(AlbumsFile, albumsJSON)
}

// replace atomically swaps name's content for data.
func (p *FilePersister) replace(name string, data []byte) (err error) {
	tmp := "/." + name + ".tmp"

	f, err := p.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			_ = p.fs.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err = p.fs.Rename(tmp, "/"+name); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// Close implements Persister.
func (p *FilePersister) Close() error { return nil }
