// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

// Package mirror owns the local item mirror: the per-catalog membership set,
// the pure diff against freshly discovered identifier sets, and batched
// mutation application.
package mirror

import (
	"context"

	"github.com/tomtom215/storesync/internal/models"
)

// Store is the local mirror's persistence contract. Writes are idempotent
// (upsert-with-ignore-duplicates) so retried batches are safe.
type Store interface {
	// ListItemIDs returns the recorded item set for a catalog.
	ListItemIDs(ctx context.Context, catalogID int64) (map[string]struct{}, error)

	// UpsertPlaceholders records catalog membership for items before their
	// enrichment completes, so the mirror reflects membership immediately.
	UpsertPlaceholders(ctx context.Context, catalogID int64, itemIDs []string) error

	// ApplyEnrichment fills in descriptive attributes for an item across
	// every catalog that contains it.
	ApplyEnrichment(ctx context.Context, itemID string, attrs *models.ItemAttributes) error

	// Remove deletes items from a catalog's recorded set.
	Remove(ctx context.Context, catalogID int64, itemIDs []string) error
}
