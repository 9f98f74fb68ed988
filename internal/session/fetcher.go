// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/metrics"
)

// Fetch errors.
var (
	ErrPayloadTooLarge  = errors.New("payload exceeds size limit")
	ErrUnexpectedStatus = errors.New("unexpected payload status")
)

// FetcherConfig configures HTTPFetcher.
type FetcherConfig struct {
	// Timeout bounds a single request, including the body read.
	Timeout time.Duration

	// MaxPayloadBytes rejects larger payloads. Zero disables the check.
	MaxPayloadBytes int64

	// RatePerSecond and Burst limit outgoing requests. Zero rate disables
	// limiting.
	RatePerSecond float64
	Burst         int

	// Breaker settings.
	BreakerName      string
	FailureThreshold uint32
	BreakerTimeout   time.Duration
	HalfOpenRequests uint32
}

// DefaultFetcherConfig returns production defaults.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:          30 * time.Second,
		MaxPayloadBytes:  64 << 20,
		RatePerSecond:    20,
		Burst:            10,
		BreakerName:      "payload-fetch",
		FailureThreshold: 5,
		BreakerTimeout:   30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// HTTPFetcher downloads message payloads from the session adapter over HTTP.
// Requests pass a rate limiter and then a circuit breaker; an open breaker
// fails fast with gobreaker.ErrOpenState.
type HTTPFetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[[]byte]
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher. client may be nil.
func NewHTTPFetcher(cfg FetcherConfig, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.BreakerName == "" {
		cfg.BreakerName = "payload-fetch"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	logger := logging.WithComponent("payload-fetcher")
	settings := gobreaker.Settings{
		Name:        cfg.BreakerName,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Caller cancellation and oversize payloads say nothing about the
		// health of the adapter.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, ErrPayloadTooLarge)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Payload fetch circuit breaker changed state")
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String(), float64(to))
		},
	}

	return &HTTPFetcher{
		client:   client,
		limiter:  limiter,
		breaker:  gobreaker.NewCircuitBreaker[[]byte](settings),
		maxBytes: cfg.MaxPayloadBytes,
	}
}

// For returns a Fetcher bound to url. It matches FetcherFactory.
func (f *HTTPFetcher) For(url string) Fetcher {
	return FetcherFunc(func(ctx context.Context) ([]byte, error) {
		return f.Fetch(ctx, url)
	})
}

// Fetch downloads url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for fetch slot: %w", err)
	}
	return f.breaker.Execute(func() ([]byte, error) {
		return f.get(ctx, url)
	})
}

// State returns the breaker state name.
func (f *HTTPFetcher) State() string {
	return f.breaker.State().String()
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build payload request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch payload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, resp.ContentLength)
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, f.maxBytes)
	}
	return data, nil
}
