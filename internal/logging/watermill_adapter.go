// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// WatermillAdapter implements watermill.LoggerAdapter on zerolog.
// Watermill logs every subscription tick at info, so its levels are shifted
// down one step.
type WatermillAdapter struct {
	logger zerolog.Logger
}

// NewWatermillAdapter returns a LoggerAdapter writing to the global logger
// with component=watermill.
func NewWatermillAdapter() *WatermillAdapter {
	return &WatermillAdapter{logger: WithComponent("watermill")}
}

// Error logs at error level.
func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	withFields(a.logger.Error().Err(err), fields).Msg(msg)
}

// Info logs at debug level.
func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	withFields(a.logger.Debug(), fields).Msg(msg)
}

// Debug logs at trace level.
func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	withFields(a.logger.Trace(), fields).Msg(msg)
}

// Trace logs at trace level.
func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	withFields(a.logger.Trace(), fields).Msg(msg)
}

// With returns an adapter with fields attached to every entry.
func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{
		logger: a.logger.With().Fields(map[string]interface{}(fields)).Logger(),
	}
}

func withFields(event *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	if event == nil || len(fields) == 0 {
		return event
	}
	return event.Fields(map[string]interface{}(fields))
}

var _ watermill.LoggerAdapter = (*WatermillAdapter)(nil)
