// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

// Package main is the entry point for the Storesync server.
//
// Storesync keeps local mirrors of remote storefront catalogs. Discovery
// calls against the token-priced primary source decide what belongs in each
// mirror; the requests-per-second-limited enrichment source fills in item
// attributes either inline or through a persistent deferred queue.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables over YAML file over defaults (Koanf v2)
//  2. Store: BadgerDB holding quota snapshots, mirror entries, and the enrichment queue
//  3. Clients: discovery (circuit-broken) and enrichment (rate-limited)
//  4. Sync manager: both orchestrator policies plus the background drain
//  5. Supervisor tree: state, sync, and ops layers under one root
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults.
//
// Required settings:
//   - STORESYNC_PRIMARY_URL, STORESYNC_PRIMARY_API_KEY
//   - STORESYNC_ENRICHMENT_URL, STORESYNC_ENRICHMENT_TOKEN
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - the supervisor tree stops all layers
//   - the sync manager waits for its drain goroutines
//   - the badger store is closed last
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/storesync/internal/config"
	"github.com/tomtom215/storesync/internal/logging"
	"github.com/tomtom215/storesync/internal/mirror"
	"github.com/tomtom215/storesync/internal/quota"
	"github.com/tomtom215/storesync/internal/supervisor"
	"github.com/tomtom215/storesync/internal/supervisor/services"
	"github.com/tomtom215/storesync/internal/sync"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("primary_url", cfg.Primary.URL).
		Str("enrichment_url", cfg.Enrichment.URL).
		Str("store_path", cfg.Store.Path).
		Bool("inline_enrichment", cfg.Sync.InlineEnrichment).
		Msg("Starting Storesync")

	badgerOpts := badger.DefaultOptions(cfg.Store.Path).WithLogger(nil)
	if cfg.Store.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	manager, err := buildManager(cfg, db)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to assemble sync manager")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bridge zerolog to slog for sutureslog compatibility.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddStateService(services.NewGCService(db, cfg.Ops.GCInterval))
	tree.AddSyncService(services.NewSyncService(manager))
	tree.AddOpsService(services.NewHTTPServerService(opsServer(cfg.Ops.Addr), cfg.Ops.ShutdownTimeout))

	logging.Info().Str("ops_addr", cfg.Ops.Addr).Msg("Supervisor tree serving")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}
	logging.Info().Msg("Storesync stopped")
}

// buildManager assembles the sync core from configuration and the shared
// store.
func buildManager(cfg *config.Config, db *badger.DB) (*sync.Manager, error) {
	bucket, err := quota.NewBucket(quota.NewBadgerStore(db), cfg.Primary.AccountKey,
		cfg.Primary.RefillPerMinute, cfg.Primary.TokenCeiling)
	if err != nil {
		return nil, err
	}

	discoverer := sync.NewBreakerDiscoverer(sync.NewDiscoveryClient(sync.DiscoveryClientConfig{
		BaseURL:  cfg.Primary.URL,
		APIKey:   cfg.Primary.APIKey,
		Timeout:  cfg.Primary.Timeout,
		MaxPages: cfg.Primary.MaxPages,
		PageSize: cfg.Primary.PageSize,
	}, bucket))

	limiter := quota.NewLimiter(cfg.Enrichment.RequestsPerSecond, cfg.Enrichment.Burst)
	enricher := sync.NewEnrichmentClient(sync.EnrichmentClientConfig{
		BaseURL:           cfg.Enrichment.URL,
		Timeout:           cfg.Enrichment.Timeout,
		MaxAttempts:       cfg.Enrichment.MaxAttempts,
		RateLimitCooldown: cfg.Enrichment.RateLimitCooldown,
	}, limiter, sync.NewStaticTokenSource(cfg.Enrichment.Token))

	store := mirror.NewBadgerStore(db)
	queue := sync.NewBadgerQueue(db)
	pipeline := sync.NewPipeline(sync.PipelineConfig{
		RetryAttempts: cfg.Sync.RetryAttempts,
		RetryDelay:    cfg.Sync.RetryDelay,
	}, enricher, queue, store)

	registry := sync.NewRegistry()
	bus := sync.NewEventBus()

	batch := sync.NewBatchRunner(sync.BatchRunnerConfig{
		TokenCost:        cfg.Primary.TokenCost,
		MaxConcurrent:    cfg.Sync.MaxConcurrent,
		InlineEnrichment: cfg.Sync.InlineEnrichment,
	}, discoverer, store, pipeline, bucket, bus)
	batch.SetMutationBatchSize(cfg.Sync.MutationBatchSize)

	sequential := sync.NewSequentialRunner(sync.SequentialRunnerConfig{
		TokenCost:        cfg.Primary.TokenCost,
		Cooldown:         cfg.Sync.Cooldown,
		InlineEnrichment: cfg.Sync.InlineEnrichment,
		DrainLimit:       cfg.Sync.DrainLimit,
	}, discoverer, store, pipeline, bucket, registry, bus)
	sequential.SetMutationBatchSize(cfg.Sync.MutationBatchSize)

	return sync.NewManager(sync.ManagerConfig{
		DrainInterval: cfg.Sync.DrainInterval,
		DrainLimit:    cfg.Sync.DrainLimit,
	}, batch, sequential, pipeline, registry), nil
}

// opsServer builds the metrics/health listener.
func opsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{Addr: addr, Handler: mux}
}
