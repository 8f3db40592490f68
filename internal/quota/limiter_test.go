// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package quota

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_BurstAbsorbedInstantly(t *testing.T) {
	l := NewLimiter(1, 3)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("burst of 3 should be instant, took %v", elapsed)
	}
}

func TestLimiter_SustainedRateBlocks(t *testing.T) {
	l := NewLimiter(10, 1)
	ctx := context.Background()

	// First acquire is free; the next two must wait ~100ms each.
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("3 acquires at 10 rps with burst 1 should take >=200ms, took %v", elapsed)
	}
}

func TestLimiter_AcquireHonorsContext(t *testing.T) {
	l := NewLimiter(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Exhaust the burst slot, then expect the context to end the wait.
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := l.Acquire(ctx); err == nil {
		t.Error("expected context deadline error, got nil")
	}
}
