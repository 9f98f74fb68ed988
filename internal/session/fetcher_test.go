// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package session

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

func testFetcherConfig() FetcherConfig {
	cfg := DefaultFetcherConfig()
	cfg.Timeout = 5 * time.Second
	cfg.RatePerSecond = 0
	cfg.FailureThreshold = 3
	cfg.BreakerTimeout = time.Minute
	cfg.BreakerName = "test-" + time.Now().Format("150405.000000000")
	return cfg
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	payload := bytes.Repeat([]byte{0xff, 0xd8, 0xff}, 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write(payload)
		case "/missing":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testFetcherConfig(), srv.Client())

	t.Run("success", func(t *testing.T) {
		data, err := f.For(srv.URL+"/ok").FetchPayload(context.Background())
		if err != nil {
			t.Fatalf("FetchPayload() error = %v", err)
		}
		if !bytes.Equal(data, payload) {
			t.Errorf("got %d bytes, want %d", len(data), len(payload))
		}
	})

	t.Run("non-2xx", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/missing")
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("Fetch() error = %v, want ErrUnexpectedStatus", err)
		}
	})
}

func TestHTTPFetcher_SizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chunked" {
			// No Content-Length: the limit is enforced while reading.
			w.(http.Flusher).Flush()
		}
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	cfg := testFetcherConfig()
	cfg.MaxPayloadBytes = 1024
	f := NewHTTPFetcher(cfg, srv.Client())

	for _, path := range []string{"/sized", "/chunked"} {
		t.Run(path, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), srv.URL+path)
			if !errors.Is(err, ErrPayloadTooLarge) {
				t.Errorf("Fetch() error = %v, want ErrPayloadTooLarge", err)
			}
		})
	}

	if f.State() != gobreaker.StateClosed.String() {
		t.Errorf("oversize payloads tripped the breaker: %s", f.State())
	}
}

func TestHTTPFetcher_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testFetcherConfig(), srv.Client())
	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrUnexpectedStatus) {
			t.Fatalf("attempt %d: error = %v", i, err)
		}
	}

	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Fetch() after threshold = %v, want ErrOpenState", err)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("server hits = %d, want 3", got)
	}
	if f.State() != gobreaker.StateOpen.String() {
		t.Errorf("State() = %s, want open", f.State())
	}
}

func TestHTTPFetcher_RateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	cfg := testFetcherConfig()
	cfg.RatePerSecond = 0.001
	cfg.Burst = 1
	f := NewHTTPFetcher(cfg, srv.Client())

	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("first Fetch() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := f.Fetch(ctx, srv.URL); err == nil {
		t.Error("second Fetch() succeeded despite exhausted limiter")
	}
}

func TestHTTPFetcher_CanceledContextDoesNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testFetcherConfig(), srv.Client())
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		if _, err := f.Fetch(ctx, srv.URL); !errors.Is(err, context.Canceled) {
			t.Fatalf("Fetch() error = %v, want context.Canceled", err)
		}
	}
	if f.State() != gobreaker.StateClosed.String() {
		t.Errorf("State() = %s, want closed", f.State())
	}
}
