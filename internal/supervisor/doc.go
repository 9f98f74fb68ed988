// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

/*
Package supervisor runs the long-lived parts of Capturehub under suture v4.

The tree has three layers, each restarted independently:

	Root ("capturehub")
	├── data-layer
	│   ├── ingest-pipeline
	│   └── catalog-gc (BadgerDB backend only)
	├── messaging-layer
	│   ├── websocket-hub
	│   └── session-bridge (if SESSION_ENABLED)
	└── api-layer
	    └── http-server

A service that returns an error is restarted with backoff. Once failures
exceed FailureThreshold the supervisor waits FailureBackoff before trying
again, so a session adapter that is down does not spin the bridge.

Supervisor events go through sutureslog to a *slog.Logger, which main wires
to zerolog via logging.NewSlogLogger.

The service wrappers live in the services subpackage.
*/
package supervisor
