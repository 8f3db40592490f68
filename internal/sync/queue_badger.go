// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package sync

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/storesync/internal/metrics"
	"github.com/tomtom215/storesync/internal/models"
)

// Queue is the deferred enrichment work queue. Entries are drained in
// enqueue order; terminal entries (completed, error) stay behind for
// inspection and are never re-dispatched.
type Queue interface {
	Enqueue(ctx context.Context, catalogID int64, itemIDs []string) error
	DequeuePending(ctx context.Context, limit int) ([]models.QueueEntry, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkError(ctx context.Context, id string, cause error) error
	PendingCount(ctx context.Context) (int, error)
}

// BadgerQueue persists queue entries in badger under a dual-key layout:
//
//	queue:e:<id>                        -> full entry JSON
//	queue:p:<enqueued-nanos>:<id>       -> id (pending index, FIFO by key order)
//
// The pending index key embeds a fixed-width timestamp so badger's
// lexicographic iteration yields enqueue order. The index entry is deleted
// when the entry leaves pending.
type BadgerQueue struct {
	db  *badger.DB
	now func() time.Time
}

// NewBadgerQueue creates a queue on db.
func NewBadgerQueue(db *badger.DB) *BadgerQueue {
	return &BadgerQueue{db: db, now: time.Now}
}

func entryKey(id string) []byte {
	return []byte("queue:e:" + id)
}

func pendingKey(enqueuedAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("queue:p:%020d:%s", enqueuedAt.UnixNano(), id))
}

var pendingPrefix = []byte("queue:p:")

// Enqueue adds one pending entry per item. Items are recorded independently
// so a later drain can complete a subset.
func (q *BadgerQueue) Enqueue(_ context.Context, catalogID int64, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	err := q.db.Update(func(txn *badger.Txn) error {
		for _, itemID := range itemIDs {
			entry := models.QueueEntry{
				ID:         uuid.New().String(),
				ItemID:     itemID,
				CatalogID:  catalogID,
				Status:     models.QueuePending,
				EnqueuedAt: q.now().UTC(),
			}
			data, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("marshal queue entry: %w", err)
			}
			if err := txn.Set(entryKey(entry.ID), data); err != nil {
				return fmt.Errorf("set queue entry: %w", err)
			}
			if err := txn.Set(pendingKey(entry.EnqueuedAt, entry.ID), []byte(entry.ID)); err != nil {
				return fmt.Errorf("set pending index: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	q.updateDepthGauge()
	return nil
}

// DequeuePending returns up to limit pending entries in enqueue order and
// transitions them to processing. The pending index rows are removed so a
// concurrent drain cannot pick the same entries up again.
func (q *BadgerQueue) DequeuePending(_ context.Context, limit int) ([]models.QueueEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	var entries []models.QueueEntry

	err := q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = pendingPrefix
		it := txn.NewIterator(opts)

		var indexKeys [][]byte
		var ids []string
		for it.Seek(pendingPrefix); it.ValidForPrefix(pendingPrefix) && len(ids) < limit; it.Next() {
			item := it.Item()
			id, err := item.ValueCopy(nil)
			if err != nil {
				it.Close()
				return fmt.Errorf("read pending index: %w", err)
			}
			indexKeys = append(indexKeys, item.KeyCopy(nil))
			ids = append(ids, string(id))
		}
		it.Close()

		for i, id := range ids {
			item, err := txn.Get(entryKey(id))
			if err != nil {
				// Index row without an entry: drop the orphan and move on.
				_ = txn.Delete(indexKeys[i])
				continue
			}
			var entry models.QueueEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("decode queue entry %s: %w", id, err)
			}

			entry.Status = models.QueueProcessing
			data, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("marshal queue entry: %w", err)
			}
			if err := txn.Set(entryKey(id), data); err != nil {
				return fmt.Errorf("update queue entry: %w", err)
			}
			if err := txn.Delete(indexKeys[i]); err != nil {
				return fmt.Errorf("delete pending index: %w", err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	q.updateDepthGauge()
	return entries, nil
}

// MarkCompleted transitions an entry to completed.
func (q *BadgerQueue) MarkCompleted(_ context.Context, id string) error {
	return q.setStatus(id, models.QueueCompleted, "")
}

// MarkError transitions an entry to error with its cause recorded. Errored
// entries are terminal; re-discovery re-adds a still-present item.
func (q *BadgerQueue) MarkError(_ context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return q.setStatus(id, models.QueueError, msg)
}

func (q *BadgerQueue) setStatus(id string, status models.QueueStatus, lastError string) error {
	return q.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(id))
		if err != nil {
			return fmt.Errorf("queue entry %s: %w", id, err)
		}
		var entry models.QueueEntry
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		}); err != nil {
			return fmt.Errorf("decode queue entry %s: %w", id, err)
		}
		entry.Status = status
		entry.LastError = lastError
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal queue entry: %w", err)
		}
		return txn.Set(entryKey(id), data)
	})
}

// PendingCount counts entries awaiting dispatch.
func (q *BadgerQueue) PendingCount(_ context.Context) (int, error) {
	count := 0
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = pendingPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(pendingPrefix); it.ValidForPrefix(pendingPrefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (q *BadgerQueue) updateDepthGauge() {
	if n, err := q.PendingCount(context.Background()); err == nil {
		metrics.EnrichmentQueueDepth.Set(float64(n))
	}
}
