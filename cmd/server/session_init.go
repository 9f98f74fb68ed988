// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/capturehub/internal/config"
	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/session"
)

// sessionComponents holds what initSession started. The zero value is a
// disabled session.
type sessionComponents struct {
	embedded *session.EmbeddedNATS
	sub      message.Subscriber
	bridge   *session.Bridge
}

// initSession connects sink to the session transport. With SESSION_ENABLED
// false it returns empty components and the pipeline only serves the API.
func initSession(ctx context.Context, cfg *config.Config, sink session.Sink) (*sessionComponents, error) {
	sc := &sessionComponents{}
	s := cfg.Session
	if !s.Enabled {
		logging.Info().Msg("Messaging session disabled (SESSION_ENABLED=false)")
		return sc, nil
	}

	url := s.NATSURL
	if s.Embedded {
		embCfg := session.DefaultEmbeddedConfig(s.StoreDir)
		embCfg.Host = s.EmbeddedHost
		embCfg.Port = s.EmbeddedPort

		emb, err := session.StartEmbeddedNATS(embCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded nats: %w", err)
		}
		sc.embedded = emb
		url = emb.ClientURL()
	}

	streamCfg := session.DefaultStreamConfig()
	streamCfg.Name = s.StreamName
	streamCfg.Subjects = []string{s.MessagesTopic, s.StateTopic}
	streamCfg.MaxAge = s.StreamMaxAge

	provisionCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := session.EnsureStream(provisionCtx, url, streamCfg); err != nil {
		sc.Shutdown()
		return nil, fmt.Errorf("provision stream %s: %w", s.StreamName, err)
	}

	natsCfg := session.DefaultNATSConfig(url)
	natsCfg.DurableName = s.DurableName
	natsCfg.QueueGroup = s.QueueGroup
	natsCfg.AckWait = s.AckWait
	natsCfg.MaxDeliver = s.MaxDeliver
	natsCfg.StreamName = s.StreamName

	sub, err := session.NewNATSSubscriber(natsCfg, logging.NewWatermillAdapter())
	if err != nil {
		sc.Shutdown()
		return nil, err
	}
	sc.sub = sub

	fetchCfg := session.DefaultFetcherConfig()
	fetchCfg.Timeout = s.Fetch.Timeout
	fetchCfg.MaxPayloadBytes = s.Fetch.MaxBytes
	fetchCfg.RatePerSecond = s.Fetch.RatePerSecond
	fetchCfg.Burst = s.Fetch.Burst
	fetchCfg.FailureThreshold = s.Fetch.FailureThreshold
	fetchCfg.BreakerTimeout = s.Fetch.BreakerTimeout
	fetcher := session.NewHTTPFetcher(fetchCfg, nil)

	sc.bridge = session.NewBridge(sub, sink, fetcher.For, session.BridgeConfig{
		MessagesTopic: s.MessagesTopic,
		StateTopic:    s.StateTopic,
	})

	logging.Info().
		Str("nats_url", url).
		Bool("embedded", s.Embedded).
		Str("stream", s.StreamName).
		Msg("Messaging session initialized")
	return sc, nil
}

// Shutdown closes the subscriber and stops the embedded server. It is safe
// on a disabled or partially initialized session.
func (sc *sessionComponents) Shutdown() {
	if sc == nil {
		return
	}
	if sc.sub != nil {
		if err := sc.sub.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing session subscriber")
		}
	}
	if sc.embedded != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sc.embedded.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Error stopping embedded NATS")
		}
	}
}
