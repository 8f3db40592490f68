// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package mirror

import (
	"context"

	"github.com/tomtom215/storesync/internal/logging"
	"github.com/tomtom215/storesync/internal/metrics"
)

// Apply writes a diff to the store in bounded batches so a huge catalog
// cannot exceed store-side payload limits. Batches are independent: a failed
// batch is logged and skipped, the rest proceed. Returns the counts actually
// applied.
func Apply(ctx context.Context, store Store, catalogID int64, diff Diff, batchSize int) (added, removed int) {
	if batchSize < 1 {
		batchSize = 1
	}

	for _, batch := range chunk(diff.ToAdd, batchSize) {
		if err := store.UpsertPlaceholders(ctx, catalogID, batch); err != nil {
			logging.Error().Err(err).
				Int64("catalog_id", catalogID).
				Int("batch_size", len(batch)).
				Msg("Placeholder batch failed, continuing with remaining batches")
			continue
		}
		added += len(batch)
	}

	for _, batch := range chunk(diff.ToRemove, batchSize) {
		if err := store.Remove(ctx, catalogID, batch); err != nil {
			logging.Error().Err(err).
				Int64("catalog_id", catalogID).
				Int("batch_size", len(batch)).
				Msg("Removal batch failed, continuing with remaining batches")
			continue
		}
		removed += len(batch)
	}

	metrics.MirrorMutations.WithLabelValues("add").Add(float64(added))
	metrics.MirrorMutations.WithLabelValues("remove").Add(float64(removed))
	return added, removed
}

// chunk splits ids into consecutive batches of at most size.
func chunk(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
