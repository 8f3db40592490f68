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
)

// defaultMutationBatchSize bounds one mirror write batch unless overridden.
const defaultMutationBatchSize = 1000

// worker is the per-catalog sync step shared by both policies:
// discover, diff against the mirror, apply mutations, then enrich or defer
// the additions.
type worker struct {
	discoverer Discoverer
	store      mirror.Store
	pipeline   *Pipeline
	batchSize  int
	bus        *EventBus
}

// syncCatalog runs one full catalog pass. All failures are folded into the
// returned CatalogResult; the error return is reserved for context
// cancellation so callers can distinguish "this catalog failed" from "the
// run is over".
func (w *worker) syncCatalog(ctx context.Context, catalog *models.Catalog, inline bool) (models.CatalogResult, error) {
	start := time.Now()
	result := models.CatalogResult{
		CatalogID:   catalog.ID,
		ExternalKey: catalog.ExternalKey,
	}

	discovered, err := w.discoverer.Discover(ctx, catalog)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Outcome = models.OutcomeFailed
		result.Error = err.Error()
		logging.Error().Err(err).
			Int64("catalog_id", catalog.ID).
			Str("storefront", catalog.ExternalKey).
			Msg("Catalog discovery failed")
		return result, nil
	}
	result.TokensUsed = discovered.TokensConsumed
	catalog.TokensConsumedTotal += discovered.TokensConsumed

	mirrored, err := w.store.ListItemIDs(ctx, catalog.ID)
	if err != nil {
		result.Outcome = models.OutcomeFailed
		result.Error = err.Error()
		return result, nil
	}

	diff := mirror.Reconcile(discovered.ItemIDs, mirrored)
	if diff.Empty() {
		result.Outcome = models.OutcomeSynced
		logging.Debug().
			Int64("catalog_id", catalog.ID).
			Int("items", len(mirrored)).
			Msg("Catalog already in sync")
		logging.Debug().Dur("elapsed", time.Since(start)).Msg("Catalog pass complete")
		return result, nil
	}

	added, removed := mirror.Apply(ctx, w.store, catalog.ID, diff, w.batchSize)
	result.Added = added
	result.Removed = removed

	if added > 0 {
		// Only items whose batch actually landed are enriched; a failed
		// add batch is retried by the next cycle's diff.
		if inline {
			enriched, err := w.pipeline.EnrichInline(ctx, diff.ToAdd)
			if err != nil {
				result.Outcome = models.OutcomeFailed
				result.Error = err.Error()
				return result, err
			}
			logging.Debug().
				Int64("catalog_id", catalog.ID).
				Int("enriched", enriched).
				Msg("Inline enrichment finished")
		} else {
			if err := w.pipeline.Defer(ctx, catalog.ID, diff.ToAdd); err != nil {
				logging.Error().Err(err).
					Int64("catalog_id", catalog.ID).
					Msg("Failed to queue deferred enrichment")
			}
		}
	}

	result.Outcome = models.OutcomeSynced
	logging.Info().
		Int64("catalog_id", catalog.ID).
		Str("storefront", catalog.ExternalKey).
		Int("added", added).
		Int("removed", removed).
		Int("tokens_used", result.TokensUsed).
		Dur("elapsed", time.Since(start)).
		Msg("Catalog synchronized")
	return result, nil
}

// publish emits a progress event when a bus is attached.
func (w *worker) publish(ev ProgressEvent) {
	if w.bus != nil {
		w.bus.PublishProgress(ev)
	}
}

// recordOutcome updates the per-catalog counters. Mirror mutation counts
// are recorded where the writes happen.
func recordOutcome(policy string, result models.CatalogResult) {
	metrics.RecordCatalog(policy, string(result.Outcome))
}
