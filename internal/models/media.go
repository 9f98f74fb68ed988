// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package models

import (
	"fmt"
	"strings"
	"time"
)

// MediaKind is the kind of a captured attachment.
type MediaKind string

// Supported media kinds.
const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

// MediaKinds lists the supported kinds in classification priority order.
var MediaKinds = []MediaKind{MediaKindImage, MediaKindVideo, MediaKindAudio}

// Extension returns the canonical file extension (with leading dot) used
// when a payload of this kind is written to the binary store.
func (k MediaKind) Extension() string {
	switch k {
	case MediaKindImage:
		return ".jpg"
	case MediaKindVideo:
		return ".mp4"
	case MediaKindAudio:
		return ".mp3"
	default:
		return ""
	}
}

// Valid reports whether k is one of the supported kinds.
func (k MediaKind) Valid() bool {
	return k.Extension() != ""
}

// MIMEPrefix returns the top-level MIME type expected for payloads of this
// kind ("image/", "video/", "audio/").
func (k MediaKind) MIMEPrefix() string {
	if !k.Valid() {
		return ""
	}
	return string(k) + "/"
}

// MatchesMIME reports whether a sniffed MIME type is plausible for k.
// Parameters such as "; charset=" are ignored.
func (k MediaKind) MatchesMIME(mimeType string) bool {
	prefix := k.MIMEPrefix()
	if prefix == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), prefix)
}

// ParseMediaKind parses a kind name case-insensitively.
func ParseMediaKind(s string) (MediaKind, error) {
	k := MediaKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown media kind %q", s)
	}
	return k, nil
}

// MediaEntry is one captured attachment.
//
// ID, Kind, URL, File, Sender, CapturedAt, MIMEType and Size are fixed at
// ingestion. Album is the only mutable field; nil means unassigned.
type MediaEntry struct {
	ID         string    `json:"id"`
	Kind       MediaKind `json:"type"`
	URL        string    `json:"url"`
	File       string    `json:"file"`
	Sender     string    `json:"sender"`
	CapturedAt time.Time `json:"timestamp"`
	Album      *string   `json:"album"`
	MIMEType   string    `json:"mime_type,omitempty"`
	Size       int64     `json:"size"`
}

// Clone returns a deep copy of the entry.
func (e *MediaEntry) Clone() *MediaEntry {
	if e == nil {
		return nil
	}
	c := *e
	if e.Album != nil {
		name := *e.Album
		c.Album = &name
	}
	return &c
}

// AlbumName returns the assigned album name or "" when unassigned.
func (e *MediaEntry) AlbumName() string {
	if e == nil || e.Album == nil {
		return ""
	}
	return *e.Album
}

// InAlbum reports whether the entry is assigned to the named album.
func (e *MediaEntry) InAlbum(name string) bool {
	return e != nil && e.Album != nil && *e.Album == name
}

// Albums maps album names to their ordered member ids.
// An existing album with no members maps to an empty, non-nil slice so it
// serializes as [] rather than null.
type Albums map[string][]string

// Clone returns a deep copy of the map.
func (a Albums) Clone() Albums {
	c := make(Albums, len(a))
	for name, members := range a {
		m := make([]string, len(members))
		copy(m, members)
		c[name] = m
	}
	return c
}

// Has reports whether the named album exists.
func (a Albums) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Contains reports whether id is a member of the named album.
func (a Albums) Contains(name, id string) bool {
	for _, member := range a[name] {
		if member == id {
			return true
		}
	}
	return false
}

// StringPtr returns a pointer to s. Handy for album assignment.
func StringPtr(s string) *string {
	return &s
}
