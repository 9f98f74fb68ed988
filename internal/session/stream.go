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

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamConfig describes the JetStream stream holding the session topics.
// Stream names cannot contain dots, so the dotted topics are bound to one
// named stream rather than provisioned per topic.
type StreamConfig struct {
	Name     string
	Subjects []string
	MaxAge   time.Duration
	MaxBytes int64
}

// DefaultStreamConfig returns the stream covering session.>.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:     "SESSION",
		Subjects: []string{"session.>"},
		MaxAge:   24 * time.Hour,
		MaxBytes: 256 << 20,
	}
}

// EnsureStream creates the stream or updates it to cfg.
func EnsureStream(ctx context.Context, url string, cfg StreamConfig) error {
	nc, err := natsgo.Connect(url, natsgo.Name("capturehub-provision"))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", url, err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("jetstream context: %w", err)
	}

	streamCfg := jetstream.StreamConfig{
		Name:      cfg.Name,
		Subjects:  cfg.Subjects,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    cfg.MaxAge,
		MaxBytes:  cfg.MaxBytes,
		Storage:   jetstream.FileStorage,
		Discard:   jetstream.DiscardOld,
	}

	_, err = js.Stream(ctx, cfg.Name)
	switch {
	case err == nil:
		if _, err := js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("update stream %s: %w", cfg.Name, err)
		}
	case errors.Is(err, jetstream.ErrStreamNotFound):
		if _, err := js.CreateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
	default:
		return fmt.Errorf("check stream %s: %w", cfg.Name, err)
	}
	return nil
}
