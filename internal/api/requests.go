// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package api

import (
	"bytes"
	"errors"

	"github.com/goccy/go-json"
)

// AssignAlbumRequest is the body of POST /media/{id}/album.
//
//	{"album": "trip"}   assign
//	{"album": null}     clear
type AssignAlbumRequest struct {
	// Album is nil when the request clears the entry's album.
	Album *string
}

var jsonNull = []byte("null")

// parseAssignAlbumRequest decodes through a raw map because a pointer field
// cannot tell a missing key from an explicit null.
func parseAssignAlbumRequest(data []byte) (AssignAlbumRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return AssignAlbumRequest{}, errors.New("invalid JSON body")
	}

	value, ok := raw["album"]
	if !ok {
		return AssignAlbumRequest{}, ErrAlbumFieldMissing
	}
	if bytes.Equal(bytes.TrimSpace(value), jsonNull) {
		return AssignAlbumRequest{}, nil
	}

	var name string
	if err := json.Unmarshal(value, &name); err != nil {
		return AssignAlbumRequest{}, ErrAlbumFieldType
	}
	if name == "" {
		return AssignAlbumRequest{}, ErrAlbumFieldEmpty
	}
	return AssignAlbumRequest{Album: &name}, nil
}
