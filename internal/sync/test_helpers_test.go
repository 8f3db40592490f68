// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package sync

import (
	"context"
	"sync"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/storesync/internal/models"
	"github.com/tomtom215/storesync/internal/quota"
)

// openTestDB returns an in-memory badger instance scoped to the test.
func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close badger: %v", err)
		}
	})
	return db
}

// memQuotaStore is an in-memory quota.Store.
type memQuotaStore struct {
	mu    sync.Mutex
	pools map[string]models.QuotaPool
}

func newMemQuotaStore() *memQuotaStore {
	return &memQuotaStore{pools: make(map[string]models.QuotaPool)}
}

func (s *memQuotaStore) Load(accountKey string) (*models.QuotaPool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.pools[accountKey]
	if !ok {
		return nil, nil
	}
	cp := pool
	return &cp, nil
}

func (s *memQuotaStore) Save(accountKey string, pool *models.QuotaPool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[accountKey] = *pool
	return nil
}

// newTestBucket returns an observed bucket holding available tokens.
func newTestBucket(t *testing.T, available, refillPerMinute, ceiling int) *quota.Bucket {
	t.Helper()
	bucket, err := quota.NewBucket(newMemQuotaStore(), "test", refillPerMinute, ceiling)
	if err != nil {
		t.Fatalf("new bucket: %v", err)
	}
	if err := bucket.Observe(available, time.Now().UnixMilli()); err != nil {
		t.Fatalf("observe: %v", err)
	}
	return bucket
}

// fakeDiscoverer serves canned results keyed by storefront key.
type fakeDiscoverer struct {
	mu      sync.Mutex
	results map[string]*models.DiscoveryResult
	errs    map[string]error
	calls   []string
}

func newFakeDiscoverer() *fakeDiscoverer {
	return &fakeDiscoverer{
		results: make(map[string]*models.DiscoveryResult),
		errs:    make(map[string]error),
	}
}

func (d *fakeDiscoverer) setResult(key string, itemIDs []string, tokens int) {
	ids := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		ids[id] = struct{}{}
	}
	d.results[key] = &models.DiscoveryResult{
		ItemIDs:        ids,
		TotalAvailable: len(itemIDs),
		TokensConsumed: tokens,
	}
}

func (d *fakeDiscoverer) Discover(_ context.Context, catalog *models.Catalog) (*models.DiscoveryResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, catalog.ExternalKey)
	if err, ok := d.errs[catalog.ExternalKey]; ok {
		return nil, err
	}
	if res, ok := d.results[catalog.ExternalKey]; ok {
		return res, nil
	}
	return &models.DiscoveryResult{ItemIDs: map[string]struct{}{}}, nil
}

func (d *fakeDiscoverer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// fakeEnricher returns canned attributes, with optional per-item errors.
type fakeEnricher struct {
	mu    sync.Mutex
	errs  map[string]error
	calls []string
}

func newFakeEnricher() *fakeEnricher {
	return &fakeEnricher{errs: make(map[string]error)}
}

func (e *fakeEnricher) Enrich(_ context.Context, itemID string) (*models.ItemAttributes, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, itemID)
	if err, ok := e.errs[itemID]; ok {
		return nil, err
	}
	return &models.ItemAttributes{ItemID: itemID, Name: "Item " + itemID}, nil
}

func (e *fakeEnricher) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}
