// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package blobstore

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/tomtom215/capturehub/internal/logging"
)

var (
	// ErrAlreadyExists is returned by Write when the name is taken.
	ErrAlreadyExists = errors.New("blob already exists")

	// ErrNotFound is returned by Delete when no blob has the name.
	ErrNotFound = errors.New("blob not found")

	// ErrInvalidName is returned for names that are empty or would escape
	// the store root.
	ErrInvalidName = errors.New("invalid blob name")
)

const (
	dirPerm  os.FileMode = 0o770
	filePerm os.FileMode = 0o640
)

// Store keeps media binaries as flat files inside one root directory.
// Names are plain file names; Store never creates subdirectories.
//
// Store holds no state besides the filesystem and is safe for concurrent use.
// Exclusive creation makes concurrent writers of the same name race safely:
// exactly one wins, the others get ErrAlreadyExists.
type Store struct {
	fs afero.Fs
}

// Open returns a Store rooted at dir on the OS filesystem, creating dir if
// needed.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("blob store directory is required")
	}
	osfs := afero.NewOsFs()
	if err := osfs.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return New(afero.NewBasePathFs(osfs, dir)), nil
}

// New returns a Store on an arbitrary afero filesystem, treating its root as
// the store root. Tests use afero.NewMemMapFs().
func New(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// ValidateName rejects names that are empty, hidden, or contain a path
// separator or parent reference.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) ||
		strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func fullPath(name string) string {
	return path.Join("/", name)
}

// Write creates name with data. It never overwrites: an existing name yields
// ErrAlreadyExists. If any step after creation fails the partial file is
// removed before the error is returned.
func (s *Store) Write(name string, data []byte) (err error) {
	if err := ValidateName(name); err != nil {
		return err
	}
	p := fullPath(name)

	f, err := s.fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
		}
		return fmt.Errorf("create %s: %w", name, err)
	}

	defer func() {
		if err == nil {
			return
		}
		if rmErr := s.fs.Remove(p); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logging.Warn().Err(rmErr).Str("file", name).Msg("Failed to remove partial blob")
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
	return nil
}

// Read returns the contents of name.
func (s *Store) Read(name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, fullPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Delete removes name. A missing blob yields ErrNotFound; callers cleaning
// up after a failed insert treat that as success.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := s.fs.Remove(fullPath(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Exists reports whether name is present.
func (s *Store) Exists(name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	ok, err := afero.Exists(s.fs, fullPath(name))
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", name, err)
	}
	return ok, nil
}

// List returns the names of all stored blobs, sorted. Directories and
// hidden files are skipped.
func (s *Store) List() ([]string, error) {
	infos, err := afero.ReadDir(s.fs, "/")
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}

// HTTPFileSystem exposes the store read-only for http.FileServer.
// Directory listings are disabled.
func (s *Store) HTTPFileSystem() http.FileSystem {
	return noListingFS{afero.NewHttpFs(afero.NewReadOnlyFs(s.fs)).Dir("/")}
}

type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
