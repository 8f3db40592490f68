// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package sync

import (
	"context"
	"time"

	"github.com/tomtom215/storesync/internal/logging"
	"github.com/tomtom215/storesync/internal/metrics"
	"github.com/tomtom215/storesync/internal/mirror"
	"github.com/tomtom215/storesync/internal/models"
	"github.com/tomtom215/storesync/internal/quota"
)

// SequentialRunnerConfig tunes the sequential throttled policy.
type SequentialRunnerConfig struct {
	// TokenCost is the fixed budgeting price of one catalog discovery.
	TokenCost int

	// Cooldown is the fixed pause between catalogs, applied regardless of
	// quota state so one long run never monopolizes the account.
	Cooldown time.Duration

	// MaxStartupWait refuses a run outright when even the first catalog
	// would need longer than this to become affordable. Zero means accept
	// any wait.
	MaxStartupWait time.Duration

	// InlineEnrichment enriches additions as each catalog is processed;
	// otherwise they are deferred to the queue.
	InlineEnrichment bool

	// DrainLimit bounds the automatic queue drain after a deferred run.
	DrainLimit int
}

// SequentialRunner is the sequential throttled policy: one catalog at a
// time, waiting for the bucket to regenerate between units, with live
// progress readable through the registry while the run is in flight.
type SequentialRunner struct {
	worker
	bucket         *quota.Bucket
	registry       *Registry
	tokenCost      int
	cooldown       time.Duration
	maxStartupWait time.Duration
	inline         bool
	drainLimit     int
}

// NewSequentialRunner assembles the sequential policy.
func NewSequentialRunner(cfg SequentialRunnerConfig, discoverer Discoverer, store mirror.Store, pipeline *Pipeline, bucket *quota.Bucket, registry *Registry, bus *EventBus) *SequentialRunner {
	drainLimit := cfg.DrainLimit
	if drainLimit <= 0 {
		drainLimit = 200
	}
	return &SequentialRunner{
		worker: worker{
			discoverer: discoverer,
			store:      store,
			pipeline:   pipeline,
			batchSize:  defaultMutationBatchSize,
			bus:        bus,
		},
		bucket:         bucket,
		registry:       registry,
		tokenCost:      cfg.TokenCost,
		cooldown:       cfg.Cooldown,
		maxStartupWait: cfg.MaxStartupWait,
		inline:         cfg.InlineEnrichment,
		drainLimit:     drainLimit,
	}
}

// SetMutationBatchSize overrides the mirror write batch bound.
func (r *SequentialRunner) SetMutationBatchSize(size int) {
	if size > 0 {
		r.batchSize = size
	}
}

// Start launches a sequential run for ownerID in the background and returns
// immediately. Errors:
//   - ErrAlreadyRunning while the owner's previous run is active
//   - InsufficientQuotaError when the first catalog's affordability wait
//     exceeds MaxStartupWait
//
// ctx bounds the whole run; Stop on the registry cancels it between
// catalogs.
func (r *SequentialRunner) Start(ctx context.Context, ownerID string, catalogs []models.Catalog) error {
	// An unobserved bucket reports zero out of ignorance, not exhaustion;
	// the run must be allowed so the first discovery can seed it.
	if r.maxStartupWait > 0 && r.bucket.Observed() && r.bucket.Available() < r.tokenCost {
		wait := r.bucket.EstimatedWait(r.tokenCost)
		if wait > r.maxStartupWait {
			return &InsufficientQuotaError{
				Available:     r.bucket.Available(),
				Required:      r.tokenCost,
				EstimatedWait: wait,
			}
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	if _, err := r.registry.Begin(ownerID, len(catalogs), cancel); err != nil {
		cancel()
		return err
	}

	go r.run(runCtx, cancel, ownerID, catalogs)
	return nil
}

// run is the owning goroutine of one sequential pass. It is the only writer
// of the owner's progress record; the registry lock orders its writes
// against reader clones.
func (r *SequentialRunner) run(ctx context.Context, cancel context.CancelFunc, ownerID string, catalogs []models.Catalog) {
	defer cancel()
	start := time.Now()
	deferredAdds := 0

	defer func() {
		r.registry.Finish(ownerID)
		metrics.RecordSyncRound("sequential", time.Since(start))
	}()

	logging.Info().
		Str("owner_id", ownerID).
		Int("catalogs", len(catalogs)).
		Bool("inline_enrichment", r.inline).
		Msg("Sequential run starting")

	for i := range catalogs {
		if ctx.Err() != nil {
			logging.Info().
				Str("owner_id", ownerID).
				Int("processed", i).
				Msg("Sequential run stopped")
			return
		}

		catalog := &catalogs[i]
		r.registry.Update(ownerID, func(rec *models.ProgressRecord) {
			unit := *catalog
			rec.CurrentUnit = &unit
			rec.NextUnitETA = nil
		})

		if err := r.waitAffordable(ctx, ownerID); err != nil {
			return
		}
		r.bucket.Reserve(r.tokenCost)

		result, err := r.syncCatalog(ctx, catalog, r.inline)
		if err != nil {
			// Context canceled mid-unit; the unit's partial work stands
			// and the next discovery cycle reconciles it.
			logging.Info().
				Str("owner_id", ownerID).
				Int64("catalog_id", catalog.ID).
				Msg("Sequential run canceled during catalog")
			return
		}
		if !r.inline && result.Added > 0 {
			deferredAdds += result.Added
		}

		r.registry.Update(ownerID, func(rec *models.ProgressRecord) {
			rec.ProcessedUnits++
			rec.Results = append(rec.Results, result)
			rec.TokensUsed += result.TokensUsed
			rec.CurrentUnit = nil
		})
		recordOutcome("sequential", result)
		r.publish(ProgressEvent{
			OwnerID:   ownerID,
			Policy:    "sequential",
			Result:    result,
			Processed: i + 1,
			Total:     len(catalogs),
		})

		if i < len(catalogs)-1 && r.cooldown > 0 {
			eta := time.Now().Add(r.cooldown).UTC()
			r.registry.Update(ownerID, func(rec *models.ProgressRecord) {
				rec.NextUnitETA = &eta
			})
			if err := sleepCtx(ctx, r.cooldown); err != nil {
				return
			}
		}
	}

	logging.Info().
		Str("owner_id", ownerID).
		Int("catalogs", len(catalogs)).
		Dur("elapsed", time.Since(start)).
		Msg("Sequential run complete")

	if deferredAdds > 0 {
		// Start draining what this run queued without waiting for the
		// periodic pass.
		if _, err := r.pipeline.Drain(ctx, r.drainLimit); err != nil && ctx.Err() == nil {
			logging.Error().Err(err).Str("owner_id", ownerID).Msg("Post-run enrichment drain failed")
		}
	}
}

// waitAffordable blocks until the bucket can afford one catalog, surfacing
// the ETA through the progress record while waiting. A bucket with no
// observation yet never regenerates, so waiting on it would never end; the
// catalog proceeds and its response provides the first balance.
func (r *SequentialRunner) waitAffordable(ctx context.Context, ownerID string) error {
	for r.bucket.Observed() && r.bucket.Available() < r.tokenCost {
		wait := r.bucket.EstimatedWait(r.tokenCost)
		if wait <= 0 {
			wait = time.Minute
		}
		eta := time.Now().Add(wait).UTC()
		r.registry.Update(ownerID, func(rec *models.ProgressRecord) {
			rec.NextUnitETA = &eta
		})
		logging.Debug().
			Str("owner_id", ownerID).
			Int("available", r.bucket.Available()).
			Int("needed", r.tokenCost).
			Dur("wait", wait).
			Msg("Waiting for token regeneration")
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
	r.registry.Update(ownerID, func(rec *models.ProgressRecord) {
		rec.NextUnitETA = nil
	})
	return nil
}
