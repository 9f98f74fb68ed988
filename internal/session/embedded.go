// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/tomtom215/capturehub/internal/logging"
)

// EmbeddedConfig configures the in-process NATS server.
type EmbeddedConfig struct {
	Host string
	// Port -1 picks a random free port.
	Port     int
	StoreDir string

	MaxMemory  int64
	MaxStore   int64
	MaxPayload int32

	ReadyTimeout time.Duration
}

// DefaultEmbeddedConfig returns defaults for a local single-binary setup.
func DefaultEmbeddedConfig(storeDir string) EmbeddedConfig {
	return EmbeddedConfig{
		Host:         "127.0.0.1",
		Port:         4222,
		StoreDir:     storeDir,
		MaxMemory:    64 << 20,
		MaxStore:     1 << 30,
		MaxPayload:   1 << 20,
		ReadyTimeout: 30 * time.Second,
	}
}

// EmbeddedNATS is a JetStream-enabled NATS server running inside the process,
// so a session adapter can publish without external infrastructure.
type EmbeddedNATS struct {
	srv *server.Server
}

// StartEmbeddedNATS starts the server and waits until it accepts clients.
func StartEmbeddedNATS(cfg EmbeddedConfig) (*EmbeddedNATS, error) {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}
	opts := &server.Options{
		ServerName:         "capturehub",
		Host:               cfg.Host,
		Port:               cfg.Port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.MaxMemory,
		JetStreamMaxStore:  cfg.MaxStore,
		MaxPayload:         cfg.MaxPayload,
		NoSigs:             true,
		NoLog:              true,
	}

	srv, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded nats: %w", err)
	}

	go srv.Start()

	if !srv.ReadyForConnections(cfg.ReadyTimeout) {
		srv.Shutdown()
		return nil, errors.New("embedded nats not ready within timeout")
	}

	logging.Info().
		Str("url", srv.ClientURL()).
		Str("store_dir", cfg.StoreDir).
		Msg("Embedded NATS server started")

	return &EmbeddedNATS{srv: srv}, nil
}

// ClientURL returns the URL clients connect to.
func (e *EmbeddedNATS) ClientURL() string {
	return e.srv.ClientURL()
}

// Running reports whether the server is up.
func (e *EmbeddedNATS) Running() bool {
	return e.srv.Running()
}

// Shutdown stops the server, waiting for it to exit unless ctx ends first.
func (e *EmbeddedNATS) Shutdown(ctx context.Context) error {
	e.srv.Shutdown()

	done := make(chan struct{})
	go func() {
		e.srv.WaitForShutdown()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
