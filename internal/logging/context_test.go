// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGenerateIDs(t *testing.T) {
	t.Parallel()

	c1, c2 := GenerateCorrelationID(), GenerateCorrelationID()
	if len(c1) != 8 {
		t.Errorf("expected 8-character correlation ID, got %d", len(c1))
	}
	if c1 == c2 {
		t.Error("expected unique correlation IDs")
	}

	r := GenerateRequestID()
	if len(r) != 36 {
		t.Errorf("expected UUID request ID, got %q", r)
	}
}

func TestContextValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if CorrelationIDFromContext(ctx) != "" || RequestIDFromContext(ctx) != "" || MessageIDFromContext(ctx) != "" {
		t.Fatal("expected empty IDs on bare context")
	}

	ctx = ContextWithCorrelationID(ctx, "abc12345")
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithMessageID(ctx, "msg-1")

	if got := CorrelationIDFromContext(ctx); got != "abc12345" {
		t.Errorf("correlation id = %q", got)
	}
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("request id = %q", got)
	}
	if got := MessageIDFromContext(ctx); got != "msg-1" {
		t.Errorf("message id = %q", got)
	}
}

func TestCtxAddsFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), zerolog.New(&buf))
	ctx = ContextWithRequestID(ctx, "req-42")
	ctx = ContextWithMessageID(ctx, "wamid-7")

	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-42"`, `"message_id":"wamid-7"`, "hello"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
	if strings.Contains(out, "correlation_id") {
		t.Errorf("unexpected correlation_id in output: %s", out)
	}
}

func TestCtxCorrelationID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), zerolog.New(&buf))
	ctx = ContextWithNewCorrelationID(ctx)

	logger := Ctx(ctx).With().Str("media_id", "image-1").Logger()
	logger.Info().Msg("stored")

	out := buf.String()
	want := `"correlation_id":"` + CorrelationIDFromContext(ctx) + `"`
	if !strings.Contains(out, `"media_id":"image-1"`) || !strings.Contains(out, want) {
		t.Errorf("unexpected output: %s", out)
	}
}
