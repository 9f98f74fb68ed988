// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

/*
Package api provides the HTTP catalog API for Capturehub.

Routes:

	GET    /media              all entries, oldest first
	GET    /media/{id}         one entry
	DELETE /media/{id}         remove an entry and its binary
	POST   /media/{id}/album   {"album": "name"} or {"album": null}
	GET    /albums             album name to member ids
	POST   /album              {"name": "trip"}; existing names succeed unchanged
	DELETE /album/{name}       remove an album, unassigning its members
	GET    /session            messaging session state
	GET    /ws                 live catalog updates (see package websocket)
	GET    /files/*            stored binaries
	GET    /healthz, /readyz   probes
	GET    /metrics            Prometheus

Every mutation goes through the catalog, which notifies the websocket hub;
handlers never broadcast directly.

Errors are returned as {"error": "message"}. Catalog errors map to statuses
in writeCatalogError:

	catalog.ErrNotFound, catalog.ErrUnknownAlbum   404
	catalog.ErrBadRequest                          400
	catalog.ErrAlreadyExists, catalog.ErrDuplicateID 409
	catalog.ErrPersistence, anything else          500

Middleware (outermost first): request ID, RealIP, Recoverer, CORS
(go-chi/cors), Prometheus metrics, then rate limiting (go-chi/httprate) and
compression on the API and websocket groups.
*/
package api
