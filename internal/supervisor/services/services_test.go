// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/capturehub/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

var (
	_ suture.Service = (*WebSocketHubService)(nil)
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*RunnerService)(nil)
	_ suture.Service = (*CatalogGCService)(nil)
)

// serveAsync runs svc.Serve and returns its result channel.
func serveAsync(ctx context.Context, svc suture.Service) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	return errCh
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}
