// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

/*
Package models defines the data structures shared by the Capturehub packages.

Key Components:

  - MediaKind: the three capturable attachment kinds (image, video, audio)
  - MediaEntry: one captured attachment, the catalog's unit of record and
    the payload of newMedia / mediaUpdated real-time events
  - Albums: the name to ordered member id map served by GET /albums
  - API response bodies: ErrorResponse, SuccessResponse, AlbumsResponse,
    MediaResponse, SessionStatus

JSON Serialization:

All types serialize with snake_case keys. A MediaEntry that belongs to no
album serializes "album": null; clients rely on the key being present.

	{
	  "id": "0f8fad5b-d9cb-469f-a165-70867728950e",
	  "type": "image",
	  "url": "/files/image-1760000000000000000.jpg",
	  "file": "image-1760000000000000000.jpg",
	  "sender": "111@s.whatsapp.net",
	  "timestamp": "2026-10-15T09:30:00Z",
	  "album": null,
	  "mime_type": "image/jpeg",
	  "size": 48213
	}

Thread Safety:

Models are plain values. The catalog hands out deep copies (see Clone), so
callers may mutate what they receive without affecting catalog state.
*/
package models
