// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package services

import (
	"context"
	"fmt"
)

// Runner is satisfied by *ingest.Pipeline and *session.Bridge.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerService supervises a component whose Run blocks until ctx ends.
// An error from Run is wrapped with the service name and returned so the
// supervisor restarts the component.
type RunnerService struct {
	runner Runner
	name   string
}

// NewRunnerService wraps runner under name.
func NewRunnerService(name string, runner Runner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// NewIngestService supervises the ingestion pipeline. Its queue lives on
// the pipeline, so messages accepted before a restart are not lost.
func NewIngestService(pipeline Runner) *RunnerService {
	return NewRunnerService("ingest-pipeline", pipeline)
}

// NewSessionBridgeService supervises the session bridge. A dropped
// subscription ends Run and the restart resubscribes.
func NewSessionBridgeService(bridge Runner) *RunnerService {
	return NewRunnerService("session-bridge", bridge)
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	return nil
}

// String implements fmt.Stringer.
func (s *RunnerService) String() string {
	return s.name
}
