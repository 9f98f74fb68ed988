// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

/*
Package websocket pushes catalog changes to connected viewers.

The Hub is the catalog's Notifier. Each catalog mutation turns into one
message after it has been persisted:

	{"type": "newMedia",      "data": <MediaEntry>}
	{"type": "mediaDeleted",  "data": {"id": "<id>"}}
	{"type": "mediaUpdated",  "data": <MediaEntry>}
	{"type": "albumsUpdated", "data": {"<album>": ["<id>", ...]}}
	{"type": "sessionState",  "data": {"state": "open", "since": "..."}}

Viewers may send {"type": "ping"} and receive {"type": "pong"}.

Delivery is best effort. Broadcast never blocks: if the hub buffer is full the
message is dropped and counted. A client whose own send buffer is full is
disconnected without affecting the others. Nothing is replayed to clients
that connect later; they load the current state with GET /media and
GET /albums.

Each client runs two goroutines:

  - readPump reads pings and detects disconnects
  - writePump writes messages and keepalive pings

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	upgrader := websocket.NewUpgrader([]string{"https://viewer.example"})
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
	    websocket.ServeWS(hub, upgrader, w, r)
	})
*/
package websocket
