// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package quota

import (
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/storesync/internal/models"
)

// memStore is an in-memory Store for bucket tests.
type memStore struct {
	mu    sync.Mutex
	pools map[string]*models.QuotaPool
	saves int
}

func newMemStore() *memStore {
	return &memStore{pools: make(map[string]*models.QuotaPool)}
}

func (s *memStore) Load(accountKey string) (*models.QuotaPool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pools[accountKey]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) Save(accountKey string, pool *models.QuotaPool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pool
	s.pools[accountKey] = &cp
	s.saves++
	return nil
}

func newTestBucket(t *testing.T, store Store, refill, ceiling int) *Bucket {
	t.Helper()
	b, err := NewBucket(store, "acct", refill, ceiling)
	if err != nil {
		t.Fatalf("NewBucket: %v", err)
	}
	return b
}

func TestBucket_ZeroBeforeFirstObservation(t *testing.T) {
	b := newTestBucket(t, newMemStore(), 22, 4800)
	if got := b.Available(); got != 0 {
		t.Errorf("unobserved bucket should report 0, got %d", got)
	}
	if b.Observed() {
		t.Error("Observed() should be false before first observation")
	}
}

func TestBucket_ObserveIsAuthoritative(t *testing.T) {
	b := newTestBucket(t, newMemStore(), 22, 4800)
	now := time.Now()
	b.now = func() time.Time { return now }

	if err := b.Observe(120, now.UnixMilli()); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if got := b.Available(); got != 120 {
		t.Errorf("Available() immediately after Observe = %d, want 120", got)
	}

	// A pending reservation is discarded by the next observation.
	b.Reserve(100)
	if got := b.Available(); got != 20 {
		t.Errorf("Available() after Reserve(100) = %d, want 20", got)
	}
	if err := b.Observe(75, now.UnixMilli()); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if got := b.Available(); got != 75 {
		t.Errorf("Observe must override stale reservation: got %d, want 75", got)
	}
}

func TestBucket_ReserveNeverNegative(t *testing.T) {
	b := newTestBucket(t, newMemStore(), 22, 4800)
	now := time.Now()
	b.now = func() time.Time { return now }

	if err := b.Observe(40, now.UnixMilli()); err != nil {
		t.Fatal(err)
	}

	b.Reserve(25)
	if got := b.Available(); got != 15 {
		t.Errorf("Available() = %d, want 15", got)
	}
	b.Reserve(100)
	if got := b.Available(); got != 0 {
		t.Errorf("Available() must clamp at zero, got %d", got)
	}
}

func TestBucket_RegenerationMonotonicAndCapped(t *testing.T) {
	b := newTestBucket(t, newMemStore(), 22, 100)
	observedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := observedAt
	b.now = func() time.Time { return current }

	if err := b.Observe(10, observedAt.UnixMilli()); err != nil {
		t.Fatal(err)
	}

	prev := b.Available()
	for _, elapsed := range []time.Duration{
		30 * time.Second, // partial minute regenerates nothing
		time.Minute,
		90 * time.Second,
		3 * time.Minute,
		10 * time.Minute, // past the ceiling
	} {
		current = observedAt.Add(elapsed)
		got := b.Available()
		if got < prev {
			t.Errorf("regeneration not monotonic at %v: %d < %d", elapsed, got, prev)
		}
		if got > 100 {
			t.Errorf("regeneration exceeded ceiling at %v: %d", elapsed, got)
		}
		prev = got
	}

	current = observedAt.Add(2 * time.Minute)
	if got := b.Available(); got != 10+2*22 {
		t.Errorf("after 2 minutes: got %d, want %d", got, 10+2*22)
	}
	current = observedAt.Add(time.Hour)
	if got := b.Available(); got != 100 {
		t.Errorf("after an hour: got %d, want ceiling 100", got)
	}
}

func TestBucket_EstimatedWait(t *testing.T) {
	b := newTestBucket(t, newMemStore(), 22, 4800)
	now := time.Now()
	b.now = func() time.Time { return now }

	if err := b.Observe(40, now.UnixMilli()); err != nil {
		t.Fatal(err)
	}

	// ceil((50-40)/22) = 1 minute
	if got := b.EstimatedWait(50); got != time.Minute {
		t.Errorf("EstimatedWait(50) = %v, want 1m", got)
	}
	if got := b.EstimatedWait(40); got != 0 {
		t.Errorf("EstimatedWait(40) = %v, want 0", got)
	}
	// ceil((150-40)/22) = 5 minutes
	if got := b.EstimatedWait(150); got != 5*time.Minute {
		t.Errorf("EstimatedWait(150) = %v, want 5m", got)
	}
}

func TestBucket_PersistsAndRehydrates(t *testing.T) {
	store := newMemStore()
	b := newTestBucket(t, store, 22, 4800)
	now := time.Now()
	b.now = func() time.Time { return now }

	if err := b.Observe(333, now.UnixMilli()); err != nil {
		t.Fatal(err)
	}
	if store.saves != 1 {
		t.Errorf("Observe should persist exactly once, saves = %d", store.saves)
	}

	// A "restarted process" sees the previous observation, not zero.
	b2 := newTestBucket(t, store, 22, 4800)
	b2.now = func() time.Time { return now }
	if got := b2.Available(); got != 333 {
		t.Errorf("rehydrated bucket Available() = %d, want 333", got)
	}
}

func TestBucket_ConcurrentReservations(t *testing.T) {
	b := newTestBucket(t, newMemStore(), 22, 10000)
	now := time.Now()
	b.now = func() time.Time { return now }

	if err := b.Observe(1000, now.UnixMilli()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Reserve(50)
		}()
	}
	wg.Wait()

	if got := b.Available(); got != 500 {
		t.Errorf("after 10 concurrent Reserve(50): got %d, want 500", got)
	}
}
