// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/metrics"
)

// Default transport topics.
const (
	TopicMessages = "session.messages"
	TopicState    = "session.state"
)

// Bridge results recorded in metrics.
const (
	resultEnqueued  = "enqueued"
	resultMalformed = "malformed"
	resultRejected  = "rejected"
	resultApplied   = "applied"
)

// ErrSubscriptionClosed is returned by Run when the transport closes a
// subscription channel. The supervisor restarts the bridge.
var ErrSubscriptionClosed = errors.New("session subscription closed")

// Envelope is the wire form of an inbound message on TopicMessages.
//
//	{"id":"3EB0...","chat":"123@s.whatsapp.net","sender":"123@s.whatsapp.net",
//	 "tags":["image"],"broadcast":false,"system":false,"from_me":false,
//	 "timestamp":"2026-10-15T09:30:00Z","payload_url":"http://adapter/payload/3EB0"}
type Envelope struct {
	ID         string       `json:"id"`
	Chat       string       `json:"chat"`
	Sender     string       `json:"sender"`
	Tags       []ContentTag `json:"tags"`
	Broadcast  bool         `json:"broadcast"`
	System     bool         `json:"system"`
	FromMe     bool         `json:"from_me"`
	Timestamp  time.Time    `json:"timestamp"`
	PayloadURL string       `json:"payload_url"`
}

// StateEnvelope is the wire form of a connection update on TopicState.
type StateEnvelope struct {
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FetcherFactory builds the payload fetcher for a payload URL.
type FetcherFactory func(url string) Fetcher

// BridgeConfig selects the topics the bridge consumes.
type BridgeConfig struct {
	MessagesTopic string
	StateTopic    string
}

// DefaultBridgeConfig returns the default topics.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		MessagesTopic: TopicMessages,
		StateTopic:    TopicState,
	}
}

// Bridge feeds a Sink from a watermill subscriber. Messages are acked once
// the sink has accepted them; malformed envelopes are logged and acked so
// they are not redelivered.
type Bridge struct {
	sub      message.Subscriber
	sink     Sink
	fetchers FetcherFactory
	cfg      BridgeConfig
	now      func() time.Time
	logger   zerolog.Logger
}

// NewBridge creates a bridge. fetchers may be nil when envelopes never
// carry payload URLs.
func NewBridge(sub message.Subscriber, sink Sink, fetchers FetcherFactory, cfg BridgeConfig) *Bridge {
	if cfg.MessagesTopic == "" {
		cfg.MessagesTopic = TopicMessages
	}
	if cfg.StateTopic == "" {
		cfg.StateTopic = TopicState
	}
	return &Bridge{
		sub:      sub,
		sink:     sink,
		fetchers: fetchers,
		cfg:      cfg,
		now:      time.Now,
		logger:   logging.WithComponent("session-bridge"),
	}
}

// Run consumes both topics until ctx is canceled or a subscription closes.
func (b *Bridge) Run(ctx context.Context) error {
	messages, err := b.sub.Subscribe(ctx, b.cfg.MessagesTopic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.cfg.MessagesTopic, err)
	}
	states, err := b.sub.Subscribe(ctx, b.cfg.StateTopic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.cfg.StateTopic, err)
	}

	b.logger.Info().
		Str("messages_topic", b.cfg.MessagesTopic).
		Str("state_topic", b.cfg.StateTopic).
		Msg("Session bridge started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-messages:
			if !ok {
				return b.closed(ctx, b.cfg.MessagesTopic)
			}
			if err := b.handleMessage(ctx, msg); err != nil {
				return err
			}

		case msg, ok := <-states:
			if !ok {
				return b.closed(ctx, b.cfg.StateTopic)
			}
			b.handleState(msg)
		}
	}
}

func (b *Bridge) closed(ctx context.Context, topic string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s", ErrSubscriptionClosed, topic)
}

// handleMessage decodes and enqueues one message. A non-nil error means the
// sink refused the message because ctx ended; the message is nacked.
func (b *Bridge) handleMessage(ctx context.Context, msg *message.Message) error {
	in, err := b.decodeMessage(msg.Payload)
	if err != nil {
		b.logger.Warn().Err(err).
			Str("message_uuid", msg.UUID).
			Msg("Dropping malformed session message")
		metrics.RecordBridgeMessage(b.cfg.MessagesTopic, resultMalformed)
		msg.Ack()
		return nil
	}

	if err := b.sink.Enqueue(ctx, in); err != nil {
		metrics.RecordBridgeMessage(b.cfg.MessagesTopic, resultRejected)
		msg.Nack()
		return fmt.Errorf("enqueue message %s: %w", in.ID, err)
	}

	metrics.RecordBridgeMessage(b.cfg.MessagesTopic, resultEnqueued)
	msg.Ack()
	return nil
}

func (b *Bridge) handleState(msg *message.Message) {
	defer msg.Ack()

	change, err := b.decodeState(msg.Payload)
	if err != nil {
		b.logger.Warn().Err(err).
			Str("message_uuid", msg.UUID).
			Msg("Dropping malformed session state update")
		metrics.RecordBridgeMessage(b.cfg.StateTopic, resultMalformed)
		return
	}

	b.sink.UpdateState(change)
	metrics.RecordBridgeMessage(b.cfg.StateTopic, resultApplied)
}

func (b *Bridge) decodeMessage(payload []byte) (*InboundMessage, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if strings.TrimSpace(env.ID) == "" {
		return nil, errors.New("envelope has no id")
	}

	in := &InboundMessage{
		ID:        env.ID,
		Chat:      env.Chat,
		Sender:    env.Sender,
		Tags:      env.Tags,
		Broadcast: env.Broadcast,
		System:    env.System,
		FromMe:    env.FromMe,
		Timestamp: env.Timestamp,
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = b.now()
	}
	if env.PayloadURL != "" && b.fetchers != nil {
		in.Payload = b.fetchers(env.PayloadURL)
	}
	return in, nil
}

func (b *Bridge) decodeState(payload []byte) (StateChange, error) {
	var env StateEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return StateChange{}, fmt.Errorf("decode state envelope: %w", err)
	}
	if !ValidState(env.State) {
		return StateChange{}, fmt.Errorf("unknown connection state %q", env.State)
	}
	at := env.Timestamp
	if at.IsZero() {
		at = b.now()
	}
	return StateChange{State: env.State, Reason: env.Reason, At: at}, nil
}
