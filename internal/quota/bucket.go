// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package quota

import (
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/storesync/internal/logging"
	"github.com/tomtom215/storesync/internal/metrics"
	"github.com/tomtom215/storesync/internal/models"
)

// Store persists quota pool snapshots. Load returns (nil, nil) when no
// snapshot exists for the account.
type Store interface {
	Load(accountKey string) (*models.QuotaPool, error)
	Save(accountKey string, pool *models.QuotaPool) error
}

// Bucket tracks the primary source's regenerating token pool.
//
// The model is "optimistic reservation, authoritative override": Reserve
// deducts from the local estimate before a round of calls so concurrent
// callers cannot double-spend the same tokens, and Observe replaces the
// whole estimate with the upstream's own accounting, discarding any
// outstanding reservations — the upstream is the source of truth.
//
// Until the first observation the bucket reports zero. A process has no
// opinion on tokens it has never confirmed.
type Bucket struct {
	mu         sync.Mutex
	store      Store
	accountKey string
	refill     int // tokens per minute
	ceiling    int
	pool       *models.QuotaPool // last authoritative observation, nil before first
	reserved   int               // speculative deductions since last observation

	now func() time.Time // injectable for tests
}

// NewBucket creates a bucket for one upstream account, rehydrating the last
// persisted observation so a restarted process does not forget recent
// consumption.
func NewBucket(store Store, accountKey string, refillPerMinute, ceiling int) (*Bucket, error) {
	b := &Bucket{
		store:      store,
		accountKey: accountKey,
		refill:     refillPerMinute,
		ceiling:    ceiling,
		now:        time.Now,
	}

	pool, err := store.Load(accountKey)
	if err != nil {
		return nil, fmt.Errorf("load quota snapshot: %w", err)
	}
	if pool != nil {
		b.pool = pool
		logging.Info().
			Str("account", accountKey).
			Int("available", pool.AvailableUnits).
			Int64("observed_at", pool.LastKnownAtMillis).
			Msg("Rehydrated quota snapshot")
	}

	return b, nil
}

// Available returns the current token estimate: the last authoritative
// observation plus elapsed-time regeneration, capped at the ceiling, minus
// outstanding reservations. Zero before the first observation.
func (b *Bucket) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.availableLocked()
}

func (b *Bucket) availableLocked() int {
	if b.pool == nil {
		return 0
	}

	// Minutes elapsed since the upstream's own timestamp, not local call
	// time, to stay aligned with the upstream clock.
	elapsedMillis := b.now().UnixMilli() - b.pool.LastKnownAtMillis
	if elapsedMillis < 0 {
		elapsedMillis = 0
	}
	regenerated := int(elapsedMillis/60_000) * b.refill

	avail := b.pool.AvailableUnits + regenerated
	if avail > b.ceiling {
		avail = b.ceiling
	}
	avail -= b.reserved
	if avail < 0 {
		avail = 0
	}
	return avail
}

// Reserve optimistically deducts amount from the local estimate ahead of
// calls that will consume it. It never contacts the upstream; the next
// Observe discards the reservation along with the rest of the estimate.
func (b *Bucket) Reserve(amount int) {
	if amount <= 0 {
		return
	}

	b.mu.Lock()
	b.reserved += amount
	avail := b.availableLocked()
	b.mu.Unlock()

	metrics.PrimaryTokensReserved.Add(float64(amount))
	metrics.PrimaryTokensAvailable.Set(float64(avail))
}

// Observe records an authoritative upstream token count. It always wins over
// any speculative reservation and is durably persisted before returning.
func (b *Bucket) Observe(reportedAvailable int, reportedAtMillis int64) error {
	if reportedAvailable < 0 {
		reportedAvailable = 0
	}

	pool := &models.QuotaPool{
		AvailableUnits:      reportedAvailable,
		RefillRatePerMinute: b.refill,
		LastKnownAtMillis:   reportedAtMillis,
	}

	b.mu.Lock()
	b.pool = pool
	b.reserved = 0
	b.mu.Unlock()

	metrics.PrimaryTokensAvailable.Set(float64(reportedAvailable))

	if err := b.store.Save(b.accountKey, pool); err != nil {
		return fmt.Errorf("persist quota snapshot: %w", err)
	}
	return nil
}

// EstimatedWait returns how long until at least needed tokens regenerate,
// rounded up to whole minutes (the upstream refills at minute granularity).
// Zero if needed is already available.
func (b *Bucket) EstimatedWait(needed int) time.Duration {
	avail := b.Available()
	if avail >= needed {
		return 0
	}
	deficit := needed - avail
	minutes := (deficit + b.refill - 1) / b.refill
	return time.Duration(minutes) * time.Minute
}

// Observed reports whether an authoritative observation has ever been made.
func (b *Bucket) Observed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pool != nil
}
