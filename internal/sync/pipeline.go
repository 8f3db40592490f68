// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package sync

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/storesync/internal/logging"
	"github.com/tomtom215/storesync/internal/mirror"
)

// PipelineConfig tunes the enrichment pipeline.
type PipelineConfig struct {
	// RetryAttempts and RetryDelay shape retries of mirror writes after a
	// successful enrichment fetch. The fetch itself retries inside the
	// client.
	RetryAttempts int
	RetryDelay    time.Duration
}

// Pipeline moves newly added items from placeholder to enriched, either
// inline during a sync call or later from the deferred queue.
type Pipeline struct {
	enricher      Enricher
	queue         Queue
	store         mirror.Store
	retryAttempts int
	retryDelay    time.Duration
}

// NewPipeline assembles a pipeline over its three collaborators.
func NewPipeline(cfg PipelineConfig, enricher Enricher, queue Queue, store mirror.Store) *Pipeline {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := cfg.RetryDelay
	if delay == 0 {
		delay = 2 * time.Second
	}
	return &Pipeline{
		enricher:      enricher,
		queue:         queue,
		store:         store,
		retryAttempts: attempts,
		retryDelay:    delay,
	}
}

// EnrichInline enriches itemIDs one at a time before returning. A missing
// item or an exhausted retry ladder costs only that item; the rest proceed.
// Returns how many items were enriched and persisted.
func (p *Pipeline) EnrichInline(ctx context.Context, itemIDs []string) (int, error) {
	enriched := 0
	for _, itemID := range itemIDs {
		if err := ctx.Err(); err != nil {
			return enriched, err
		}
		if err := p.enrichOne(ctx, itemID); err != nil {
			if ctx.Err() != nil {
				return enriched, ctx.Err()
			}
			logging.Warn().Err(err).Str("item_id", itemID).Msg("Inline enrichment failed, continuing")
			continue
		}
		enriched++
	}
	return enriched, nil
}

// Defer queues itemIDs for the background drain instead of enriching now.
func (p *Pipeline) Defer(ctx context.Context, catalogID int64, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	if err := p.queue.Enqueue(ctx, catalogID, itemIDs); err != nil {
		return err
	}
	logging.Debug().
		Int64("catalog_id", catalogID).
		Int("items", len(itemIDs)).
		Msg("Deferred enrichment queued")
	return nil
}

// Drain processes up to limit pending queue entries. Each entry ends in a
// terminal state: completed on success (or on a vanished item), error when
// the fetch ladder is exhausted. Returns how many entries completed.
func (p *Pipeline) Drain(ctx context.Context, limit int) (int, error) {
	entries, err := p.queue.DequeuePending(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	completed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			// Entries already moved to processing stay there; the next
			// drain pass does not see them and re-discovery re-adds any
			// still-missing items.
			return completed, err
		}
		if err := p.enrichOne(ctx, entry.ItemID); err != nil {
			if ctx.Err() != nil {
				return completed, ctx.Err()
			}
			if merr := p.queue.MarkError(ctx, entry.ID, err); merr != nil {
				logging.Error().Err(merr).Str("entry_id", entry.ID).Msg("Failed to mark queue entry errored")
			}
			continue
		}
		if merr := p.queue.MarkCompleted(ctx, entry.ID); merr != nil {
			logging.Error().Err(merr).Str("entry_id", entry.ID).Msg("Failed to mark queue entry completed")
			continue
		}
		completed++
	}

	logging.Info().
		Int("dequeued", len(entries)).
		Int("completed", completed).
		Msg("Enrichment drain pass finished")
	return completed, nil
}

// enrichOne fetches one item's attributes and persists them into every
// catalog's mirror rows for that item. A 404 means the item vanished
// upstream since discovery; the placeholder stays and the next discovery
// cycle removes it.
func (p *Pipeline) enrichOne(ctx context.Context, itemID string) error {
	attrs, err := p.enricher.Enrich(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logging.Debug().Str("item_id", itemID).Msg("Item vanished upstream before enrichment")
			return nil
		}
		return err
	}
	return retryWithBackoff(ctx, p.retryAttempts, p.retryDelay, func() error {
		return p.store.ApplyEnrichment(ctx, itemID, attrs)
	})
}
