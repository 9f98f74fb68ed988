// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package session

import (
	"context"
	"time"

	"github.com/tomtom215/capturehub/internal/models"
)

// ContentTag marks a content kind carried by a remote message. A message may
// carry several tags; Classify picks one.
type ContentTag string

// Content tags understood by the adapter. Anything else is treated as TagOther.
const (
	TagImage ContentTag = "image"
	TagVideo ContentTag = "video"
	TagAudio ContentTag = "audio"
	TagOther ContentTag = "other"
)

// Variant is the single content variant selected for a message.
type Variant int

// Variants in no particular order; see Classify for priority.
const (
	VariantNone Variant = iota
	VariantImage
	VariantVideo
	VariantAudio
	VariantOther
)

// String returns the lowercase variant name.
func (v Variant) String() string {
	switch v {
	case VariantImage:
		return "image"
	case VariantVideo:
		return "video"
	case VariantAudio:
		return "audio"
	case VariantOther:
		return "other"
	default:
		return "none"
	}
}

// MediaKind maps a media variant to its catalog kind. ok is false for
// VariantNone and VariantOther.
func (v Variant) MediaKind() (kind models.MediaKind, ok bool) {
	switch v {
	case VariantImage:
		return models.MediaKindImage, true
	case VariantVideo:
		return models.MediaKindVideo, true
	case VariantAudio:
		return models.MediaKindAudio, true
	default:
		return "", false
	}
}

// Classify selects a variant from the tags of a message using the priority
// image > video > audio > other. No tags yields VariantNone.
func Classify(tags []ContentTag) Variant {
	if len(tags) == 0 {
		return VariantNone
	}
	var image, video, audio bool
	for _, t := range tags {
		switch t {
		case TagImage:
			image = true
		case TagVideo:
			video = true
		case TagAudio:
			audio = true
		}
	}
	switch {
	case image:
		return VariantImage
	case video:
		return VariantVideo
	case audio:
		return VariantAudio
	default:
		return VariantOther
	}
}

// Fetcher retrieves the binary payload of a message on demand.
type Fetcher interface {
	FetchPayload(ctx context.Context) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) ([]byte, error)

// FetchPayload calls f(ctx).
func (f FetcherFunc) FetchPayload(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// InboundMessage is one message delivered by the messaging session.
type InboundMessage struct {
	// ID is the source message id. It is used for log correlation only.
	ID     string
	Chat   string
	Sender string
	Tags   []ContentTag

	// Broadcast is set for status/broadcast-channel messages.
	Broadcast bool
	// System is set for administrative or protocol notifications.
	System bool
	FromMe bool

	Timestamp time.Time

	// Payload fetches the attachment. Nil when the message carries none.
	Payload Fetcher
}

// Variant classifies the message tags.
func (m *InboundMessage) Variant() Variant {
	if m == nil {
		return VariantNone
	}
	return Classify(m.Tags)
}

// Connection states reported by the session.
const (
	StateConnecting = "connecting"
	StateOpen       = "open"
	StateClosed     = "closed"
)

// KnownStates lists every connection state.
var KnownStates = []string{StateConnecting, StateOpen, StateClosed}

// ValidState reports whether s is a known connection state.
func ValidState(s string) bool {
	for _, k := range KnownStates {
		if k == s {
			return true
		}
	}
	return false
}

// StateChange is a connection state transition of the messaging session.
type StateChange struct {
	State  string
	Reason string
	At     time.Time
}

// Sink consumes what the session delivers. The ingestion pipeline is the
// production implementation.
type Sink interface {
	// Enqueue hands a message over for processing. It blocks while the sink
	// is saturated and returns ctx.Err() if ctx ends first.
	Enqueue(ctx context.Context, msg *InboundMessage) error

	// UpdateState records a connection state change.
	UpdateState(change StateChange)
}
