// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/capturehub/internal/api"
	"github.com/tomtom215/capturehub/internal/blobstore"
	"github.com/tomtom215/capturehub/internal/catalog"
	"github.com/tomtom215/capturehub/internal/config"
	"github.com/tomtom215/capturehub/internal/ingest"
	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/metrics"
	"github.com/tomtom215/capturehub/internal/supervisor"
	"github.com/tomtom215/capturehub/internal/supervisor/services"
	ws "github.com/tomtom215/capturehub/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("media_dir", cfg.Storage.MediaDir).
		Str("catalog_backend", cfg.Catalog.Backend).
		Bool("session_enabled", cfg.Session.Enabled).
		Msg("Starting Capturehub")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blobs, err := blobstore.Open(cfg.Storage.MediaDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open binary store")
	}

	persister, gc, err := openPersister(&cfg.Catalog)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open catalog backend")
	}

	wsHub := ws.NewHub()

	cat, err := catalog.Open(ctx, persister, blobs, wsHub)
	if err != nil {
		_ = persister.Close()
		logging.Fatal().Err(err).Msg("Failed to load catalog")
	}
	defer func() {
		if err := cat.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog")
		}
	}()

	// Binaries written by an interrupted ingestion are orphans now; this
	// must happen before the pipeline starts.
	report, err := cat.Reconcile(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to reconcile catalog with binary store")
	}
	if !report.Clean() {
		logging.Warn().
			Int("missing_binaries", len(report.MissingBinaries)).
			Int("orphan_binaries", len(report.OrphanBinaries)).
			Int("failed_deletes", report.FailedDeletes).
			Msg("Catalog reconciled")
	}

	pipeline := ingest.New(ingestConfig(cfg), cat, blobs, wsHub)

	sess, err := initSession(ctx, cfg, pipeline)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize messaging session")
	}
	defer sess.Shutdown()

	handler := api.NewHandler(cat, wsHub, pipeline, api.HandlerConfig{
		Version:          version,
		WSAllowedOrigins: cfg.Security.CORSOrigins,
	})
	router := api.NewRouter(handler, routerConfig(cfg, blobs))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout + cfg.Ingest.DrainTimeout,
	})

	tree.AddDataService(services.NewIngestService(pipeline))
	if cfg.Catalog.GCInterval > 0 {
		tree.AddDataService(services.NewCatalogGCService(gc, cat, cfg.Catalog.GCInterval))
	}

	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	if sess.bridge != nil {
		tree.AddMessagingService(services.NewSessionBridgeService(sess.bridge))
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Capturehub stopped")
}

// openPersister opens the configured catalog backend. gc is non-nil only
// for BadgerDB.
func openPersister(cfg *config.CatalogConfig) (catalog.Persister, services.GarbageCollector, error) {
	switch cfg.Backend {
	case config.CatalogBackendFile:
		p, err := catalog.OpenFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	default:
		p, err := catalog.OpenBadger(catalog.BadgerConfig{
			Path:        cfg.BadgerPath,
			SyncWrites:  cfg.SyncWrites,
			Compression: cfg.Compression,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	}
}

func ingestConfig(cfg *config.Config) ingest.Config {
	return ingest.Config{
		QueueSize:       cfg.Ingest.QueueSize,
		FetchTimeout:    cfg.Ingest.FetchTimeout,
		MaxNameAttempts: cfg.Ingest.MaxNameAttempts,
		URLPrefix:       cfg.Storage.FilesPrefix,
		SkipFromMe:      cfg.Ingest.SkipFromMe,
		DrainTimeout:    cfg.Ingest.DrainTimeout,
	}
}

func routerConfig(cfg *config.Config, blobs *blobstore.Store) api.RouterConfig {
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mw.RateLimitRequests = cfg.Security.RateLimitReqs
	mw.RateLimitWindow = cfg.Security.RateLimitWindow
	mw.RateLimitDisabled = cfg.Security.RateLimitDisabled

	return api.RouterConfig{
		Middleware:      mw,
		Files:           blobs.HTTPFileSystem(),
		FilesPrefix:     cfg.Storage.FilesPrefix,
		MetricsDisabled: !cfg.Server.MetricsEnabled,
	}
}
