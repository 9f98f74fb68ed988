// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

/*
Package services adapts Capturehub components to suture.Service.

Each wrapper translates a component lifecycle into Serve(ctx) error and
names itself through fmt.Stringer for supervisor event logs:

  - WebSocketHubService: websocket.Hub.RunWithContext
  - HTTPServerService: http.Server ListenAndServe and Shutdown
  - RunnerService: Run(ctx) error, used for the ingestion pipeline
    (NewIngestService) and the session bridge (NewSessionBridgeService)
  - CatalogGCService: periodic BadgerDB value log GC

Wrappers depend on small interfaces, not on the component packages, so
tests drive them with fakes.
*/
package services
