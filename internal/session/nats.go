// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package session

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// NATSConfig configures the JetStream subscriber the bridge reads from.
type NATSConfig struct {
	URL           string
	DurableName   string
	QueueGroup    string
	AckWait       time.Duration
	MaxDeliver    int
	MaxAckPending int
	CloseTimeout  time.Duration
	MaxReconnects int
	ReconnectWait time.Duration

	// StreamName binds to an existing stream (see EnsureStream). Empty
	// provisions one stream per topic, which only works for dot-free topics.
	StreamName string
}

// DefaultNATSConfig returns production defaults for url.
func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:           url,
		DurableName:   "capturehub",
		QueueGroup:    "capturehub",
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		MaxAckPending: 256,
		CloseTimeout:  30 * time.Second,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		StreamName:    DefaultStreamConfig().Name,
	}
}

// NewNATSSubscriber creates a durable JetStream subscriber. One consumer
// goroutine per topic keeps delivery in arrival order.
func NewNATSSubscriber(cfg NATSConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("capturehub-session"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Session transport disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Session transport reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWait),
		natsgo.DeliverNew(),
	}

	autoProvision := true
	if cfg.StreamName != "" {
		subOpts = append(subOpts, natsgo.BindStream(cfg.StreamName))
		autoProvision = false
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWait,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision:    autoProvision,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create session subscriber: %w", err)
	}
	return sub, nil
}

// NewNATSPublisher creates a JetStream publisher for the session topics.
// Session adapters use it to emit envelopes.
func NewNATSPublisher(cfg NATSConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL: cfg.URL,
		NatsOptions: []natsgo.Option{
			natsgo.Name("capturehub-publisher"),
			natsgo.RetryOnFailedConnect(true),
			natsgo.MaxReconnects(cfg.MaxReconnects),
			natsgo.ReconnectWait(cfg.ReconnectWait),
		},
		Marshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: cfg.StreamName == "",
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create session publisher: %w", err)
	}
	return pub, nil
}
