// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/capturehub/internal/logging"
)

// GarbageCollector is satisfied by *catalog.BadgerPersister.
type GarbageCollector interface {
	RunGC() error
}

// BinarySweeper is satisfied by *catalog.Catalog.
type BinarySweeper interface {
	RetryBinaryDeletes(ctx context.Context) int
}

// CatalogGCService does periodic catalog housekeeping: it retries binary
// deletes that failed during entry deletion and, on the BadgerDB backend,
// runs value log GC. Either part may be nil. Failures are logged; they
// never stop the service.
type CatalogGCService struct {
	gc       GarbageCollector
	sweeper  BinarySweeper
	interval time.Duration
	name     string
	logger   zerolog.Logger
}

// NewCatalogGCService wraps gc and sweeper. A non-positive interval
// becomes 10m.
func NewCatalogGCService(gc GarbageCollector, sweeper BinarySweeper, interval time.Duration) *CatalogGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CatalogGCService{
		gc:       gc,
		sweeper:  sweeper,
		interval: interval,
		name:     "catalog-gc",
		logger:   logging.WithComponent("catalog-gc"),
	}
}

// Serve implements suture.Service.
func (s *CatalogGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
			s.runGC()
		}
	}
}

func (s *CatalogGCService) sweep(ctx context.Context) {
	if s.sweeper == nil {
		return
	}
	if remaining := s.sweeper.RetryBinaryDeletes(ctx); remaining > 0 {
		s.logger.Warn().Int("pending", remaining).Msg("Binary deletes still failing")
	}
}

func (s *CatalogGCService) runGC() {
	if s.gc == nil {
		return
	}
	start := time.Now()
	if err := s.gc.RunGC(); err != nil {
		s.logger.Warn().Err(err).Msg("Catalog value log GC failed")
		return
	}
	s.logger.Debug().Dur("duration", time.Since(start)).Msg("Catalog value log GC finished")
}

// String implements fmt.Stringer.
func (s *CatalogGCService) String() string {
	return s.name
}
