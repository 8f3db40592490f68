// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

/*
manager.go - Sync Manager Lifecycle and Orchestration

The manager is the single entry point into the sync core. It owns both
orchestrator policies, the enrichment pipeline, the progress registry, and
the background drain loop.

Lifecycle:
  - NewManager(): wire policies over shared clients and stores
  - Start(): launch the periodic enrichment drain
  - Stop(): cancel background work and wait for completion

Operations:
  - SynchronizeBatch(): batch-parallel round over a catalog list
  - StartSequential() / Progress() / StopSequential(): sequential runs
  - DrainEnrichmentQueue(): one manual drain pass
*/
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/storesync/internal/logging"
	"github.com/tomtom215/storesync/internal/models"
)

// ManagerConfig tunes the manager's background work.
type ManagerConfig struct {
	// DrainInterval is how often the background drain runs. Zero disables
	// the loop; deferred entries then wait for post-run or manual drains.
	DrainInterval time.Duration

	// DrainLimit bounds entries per background drain pass.
	DrainLimit int
}

// Manager orchestrates catalog synchronization across both policies.
type Manager struct {
	batch      *BatchRunner
	sequential *SequentialRunner
	pipeline   *Pipeline
	registry   *Registry
	cfg        ManagerConfig

	mu       sync.Mutex
	running  bool
	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewManager wires a manager over pre-assembled policies. The policies
// share one pipeline and one registry.
func NewManager(cfg ManagerConfig, batch *BatchRunner, sequential *SequentialRunner, pipeline *Pipeline, registry *Registry) *Manager {
	if cfg.DrainLimit <= 0 {
		cfg.DrainLimit = 200
	}
	return &Manager{
		batch:      batch,
		sequential: sequential,
		pipeline:   pipeline,
		registry:   registry,
		cfg:        cfg,
		stopChan:   make(chan struct{}),
	}
}

// SynchronizeBatch runs one batch-parallel round over catalogs, returning
// the per-catalog breakdown. Blocks until the round completes.
func (m *Manager) SynchronizeBatch(ctx context.Context, catalogs []models.Catalog) (*models.BatchResult, error) {
	return m.batch.Run(ctx, catalogs)
}

// StartSequential launches a sequential run for ownerID and returns
// immediately. Progress is readable via Progress while the run is live.
func (m *Manager) StartSequential(ctx context.Context, ownerID string, catalogs []models.Catalog) error {
	return m.sequential.Start(ctx, ownerID, catalogs)
}

// Progress returns a snapshot of the owner's latest sequential run, nil if
// the owner never started one.
func (m *Manager) Progress(ownerID string) *models.ProgressRecord {
	return m.registry.Get(ownerID)
}

// StopSequential requests cooperative cancellation of the owner's active
// run. The run stops between catalogs; mid-catalog work completes first.
// Reports whether a running run was found.
func (m *Manager) StopSequential(ownerID string) bool {
	return m.registry.Stop(ownerID)
}

// DrainEnrichmentQueue runs one drain pass over up to limit pending
// entries, returning how many completed.
func (m *Manager) DrainEnrichmentQueue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = m.cfg.DrainLimit
	}
	return m.pipeline.Drain(ctx, limit)
}

// Start launches the background drain loop. Safe to call once; a second
// call while running is an error.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("sync manager already started")
	}
	m.running = true

	if m.cfg.DrainInterval > 0 {
		m.wg.Add(1)
		go m.drainLoop(ctx)
	}
	logging.Info().
		Dur("drain_interval", m.cfg.DrainInterval).
		Int("drain_limit", m.cfg.DrainLimit).
		Msg("Sync manager started")
	return nil
}

// Stop shuts down background work and waits for it to finish.
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	logging.Info().Msg("Sync manager stopped")
	return nil
}

// drainLoop periodically moves deferred enrichment entries through the
// pipeline until Stop or context cancellation.
func (m *Manager) drainLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			completed, err := m.pipeline.Drain(ctx, m.cfg.DrainLimit)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logging.Error().Err(err).Msg("Background enrichment drain failed")
				continue
			}
			if completed > 0 {
				logging.Debug().Int("completed", completed).Msg("Background enrichment drain pass")
			}
		}
	}
}
