// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package sync

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/storesync/internal/logging"
	"github.com/tomtom215/storesync/internal/metrics"
	"github.com/tomtom215/storesync/internal/mirror"
	"github.com/tomtom215/storesync/internal/models"
	"github.com/tomtom215/storesync/internal/quota"
)

// BatchRunnerConfig tunes the batch-parallel policy.
type BatchRunnerConfig struct {
	// TokenCost is the fixed budgeting price of one catalog discovery.
	TokenCost int

	// MaxConcurrent bounds catalog fan-out within one round.
	MaxConcurrent int

	// InlineEnrichment enriches additions before the round returns;
	// otherwise they are deferred to the queue.
	InlineEnrichment bool
}

// BatchRunner is the batch-parallel policy: budget the whole round up
// front against the primary bucket, reserve once, then fan out over the
// affordable prefix of the catalog list.
type BatchRunner struct {
	worker
	bucket        *quota.Bucket
	tokenCost     int
	maxConcurrent int
	inline        bool
}

// NewBatchRunner assembles the batch-parallel policy.
func NewBatchRunner(cfg BatchRunnerConfig, discoverer Discoverer, store mirror.Store, pipeline *Pipeline, bucket *quota.Bucket, bus *EventBus) *BatchRunner {
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 4
	}
	return &BatchRunner{
		worker: worker{
			discoverer: discoverer,
			store:      store,
			pipeline:   pipeline,
			batchSize:  defaultMutationBatchSize,
			bus:        bus,
		},
		bucket:        bucket,
		tokenCost:     cfg.TokenCost,
		maxConcurrent: maxConc,
		inline:        cfg.InlineEnrichment,
	}
}

// SetMutationBatchSize overrides the mirror write batch bound.
func (r *BatchRunner) SetMutationBatchSize(size int) {
	if size > 0 {
		r.batchSize = size
	}
}

// Run synchronizes as many of catalogs as the current token balance
// affords, in the given order, fanning out up to MaxConcurrent at a time.
// Unaffordable catalogs are reported as skipped, never failed. When not
// even one catalog is affordable the round returns InsufficientQuotaError
// carrying the estimated wait until one becomes affordable.
func (r *BatchRunner) Run(ctx context.Context, catalogs []models.Catalog) (*models.BatchResult, error) {
	start := time.Now()
	if len(catalogs) == 0 {
		return &models.BatchResult{}, nil
	}

	available := r.bucket.Available()
	affordable := 0
	if r.tokenCost > 0 {
		affordable = available / r.tokenCost
	}
	if affordable == 0 {
		if !r.bucket.Observed() {
			// A fresh account has never reported a balance, so the zero
			// estimate is ignorance, not exhaustion. Let one catalog
			// through; its response seeds the bucket for the rest.
			affordable = 1
			logging.Info().Msg("No quota observation yet, bootstrapping round with one catalog")
		} else {
			wait := r.bucket.EstimatedWait(r.tokenCost)
			logging.Warn().
				Int("available", available).
				Int("token_cost", r.tokenCost).
				Dur("estimated_wait", wait).
				Msg("Batch round refused, not enough tokens for a single catalog")
			return nil, &InsufficientQuotaError{
				Available:     available,
				Required:      r.tokenCost,
				EstimatedWait: wait,
			}
		}
	}

	selected := len(catalogs)
	if affordable < selected {
		selected = affordable
	}
	// One reservation covers the whole round. The first upstream echo
	// replaces it with the authoritative balance.
	r.bucket.Reserve(selected * r.tokenCost)

	logging.Info().
		Int("catalogs", len(catalogs)).
		Int("selected", selected).
		Int("available", available).
		Int("max_concurrent", r.maxConcurrent).
		Msg("Batch round starting")

	results := make([]models.CatalogResult, len(catalogs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.maxConcurrent)
	for i := 0; i < selected; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = models.CatalogResult{
					CatalogID:   catalogs[idx].ID,
					ExternalKey: catalogs[idx].ExternalKey,
					Outcome:     models.OutcomeSkipped,
					Error:       ctx.Err().Error(),
				}
				return
			}

			res, err := r.syncCatalog(ctx, &catalogs[idx], r.inline)
			if err != nil && res.Outcome == "" {
				res.Outcome = models.OutcomeSkipped
				res.Error = err.Error()
			}
			results[idx] = res
		}(i)
	}
	wg.Wait()

	for i := selected; i < len(catalogs); i++ {
		results[i] = models.CatalogResult{
			CatalogID:   catalogs[i].ID,
			ExternalKey: catalogs[i].ExternalKey,
			Outcome:     models.OutcomeSkipped,
		}
	}

	batch := summarize(results)
	batch.Attempted = selected
	for i := range results {
		recordOutcome("batch", results[i])
		r.publish(ProgressEvent{
			Policy:    "batch",
			Result:    results[i],
			Processed: i + 1,
			Total:     len(catalogs),
		})
	}
	metrics.RecordSyncRound("batch", time.Since(start))

	logging.Info().
		Int("attempted", batch.Attempted).
		Int("succeeded", batch.Succeeded).
		Int("failed", batch.Failed).
		Int("skipped", batch.Skipped).
		Int("tokens_used", batch.TokensUsed).
		Dur("elapsed", time.Since(start)).
		Msg("Batch round complete")
	return batch, nil
}

// summarize folds per-catalog results into a BatchResult.
func summarize(results []models.CatalogResult) *models.BatchResult {
	batch := &models.BatchResult{Results: results}
	for _, res := range results {
		switch res.Outcome {
		case models.OutcomeSynced:
			batch.Succeeded++
		case models.OutcomeFailed:
			batch.Failed++
		case models.OutcomeSkipped:
			batch.Skipped++
		}
		batch.Added += res.Added
		batch.Removed += res.Removed
		batch.TokensUsed += res.TokensUsed
	}
	return batch
}
