// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/storesync/internal/models"
)

func TestQueueEnqueueDequeueFIFO(t *testing.T) {
	q := NewBadgerQueue(openTestDB(t))
	ctx := context.Background()

	// Distinct timestamps so enqueue order is unambiguous.
	base := time.Now()
	tick := 0
	q.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	if err := q.Enqueue(ctx, 1, []string{"a", "b"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, 2, []string{"c"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	entries, err := q.DequeuePending(ctx, 10)
	if err != nil {
		t.Fatalf("DequeuePending: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	want := []string{"a", "b", "c"}
	for i, entry := range entries {
		if entry.ItemID != want[i] {
			t.Errorf("entries[%d].ItemID = %q, want %q", i, entry.ItemID, want[i])
		}
		if entry.Status != models.QueueProcessing {
			t.Errorf("entries[%d].Status = %q, want processing", i, entry.Status)
		}
	}
	if entries[2].CatalogID != 2 {
		t.Errorf("entries[2].CatalogID = %d, want 2", entries[2].CatalogID)
	}
}

func TestQueueDequeueRespectsLimit(t *testing.T) {
	q := NewBadgerQueue(openTestDB(t))
	ctx := context.Background()

	if err := q.Enqueue(ctx, 1, []string{"a", "b", "c", "d"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	first, err := q.DequeuePending(ctx, 3)
	if err != nil {
		t.Fatalf("DequeuePending: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("first pass = %d entries, want 3", len(first))
	}

	second, err := q.DequeuePending(ctx, 3)
	if err != nil {
		t.Fatalf("DequeuePending: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("second pass = %d entries, want 1", len(second))
	}

	// Dispatched entries never reappear.
	third, err := q.DequeuePending(ctx, 3)
	if err != nil {
		t.Fatalf("DequeuePending: %v", err)
	}
	if len(third) != 0 {
		t.Errorf("third pass = %d entries, want 0", len(third))
	}
}

func TestQueueTerminalStates(t *testing.T) {
	q := NewBadgerQueue(openTestDB(t))
	ctx := context.Background()

	if err := q.Enqueue(ctx, 1, []string{"a", "b"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	entries, err := q.DequeuePending(ctx, 10)
	if err != nil {
		t.Fatalf("DequeuePending: %v", err)
	}

	if err := q.MarkCompleted(ctx, entries[0].ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if err := q.MarkError(ctx, entries[1].ID, errors.New("upstream said no")); err != nil {
		t.Fatalf("MarkError: %v", err)
	}

	pending, err := q.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if pending != 0 {
		t.Errorf("PendingCount = %d, want 0", pending)
	}
}

func TestQueuePendingCount(t *testing.T) {
	q := NewBadgerQueue(openTestDB(t))
	ctx := context.Background()

	if n, err := q.PendingCount(ctx); err != nil || n != 0 {
		t.Fatalf("PendingCount = %d, %v, want 0, nil", n, err)
	}
	if err := q.Enqueue(ctx, 1, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if n, _ := q.PendingCount(ctx); n != 3 {
		t.Errorf("PendingCount = %d, want 3", n)
	}
	if _, err := q.DequeuePending(ctx, 2); err != nil {
		t.Fatalf("DequeuePending: %v", err)
	}
	if n, _ := q.PendingCount(ctx); n != 1 {
		t.Errorf("PendingCount = %d, want 1", n)
	}
}

func TestQueueEnqueueNothing(t *testing.T) {
	q := NewBadgerQueue(openTestDB(t))
	if err := q.Enqueue(context.Background(), 1, nil); err != nil {
		t.Fatalf("Enqueue(nil): %v", err)
	}
}
