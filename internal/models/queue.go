// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package models

import "time"

// QueueStatus is the lifecycle state of a deferred enrichment entry.
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueProcessing QueueStatus = "processing"
	QueueCompleted  QueueStatus = "completed"
	QueueError      QueueStatus = "error"
)

// QueueEntry is one deferred enrichment work item. Terminal states are
// completed and error; an errored entry is not retried from the queue — a
// later discovery cycle re-adds the item if it is still present upstream
// and still missing enrichment.
type QueueEntry struct {
	ID         string      `json:"id"`
	ItemID     string      `json:"item_id"`
	CatalogID  int64       `json:"catalog_id"`
	Status     QueueStatus `json:"status"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
	LastError  string      `json:"last_error,omitempty"`
}
