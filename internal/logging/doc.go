// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

// Package logging provides centralized zerolog-based structured logging for Capturehub.
//
// A single global logger is configured once at startup from the logging
// section of the configuration and is safe for concurrent use:
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("media_id", id).Msg("Capture stored")
//	logging.Error().Err(err).Msg("Catalog persistence failed")
//
// # Context-Aware Logging
//
// The HTTP layer attaches a request ID and the ingest pipeline attaches the
// inbound message ID; Ctx adds whichever are present:
//
//	ctx = logging.ContextWithMessageID(ctx, msg.ID)
//	logging.Ctx(ctx).Warn().Err(err).Msg("Payload retrieval failed")
//
// # Adapters
//
// Two adapters route third-party logging into zerolog:
//
//   - SlogHandler / NewSlogLogger for sutureslog (supervisor events)
//   - WatermillAdapter for the watermill session subscriber
//
// Always terminate log chains with .Msg() or .Send(); an unterminated
// event is never written.
package logging
