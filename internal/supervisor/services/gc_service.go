// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package services

import (
	"context"
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/storesync/internal/logging"
)

// GCService runs periodic badger value-log garbage collection. Mirror
// churn (placeholder rewrites, removals) accumulates stale value-log
// entries that only GC reclaims. In-memory instances have no value log;
// RunValueLogGC then reports ErrRejected, which is ignored.
type GCService struct {
	db           *badger.DB
	interval     time.Duration
	discardRatio float64
	name         string
}

// NewGCService creates a GC service for db. interval defaults to 10
// minutes, discardRatio to 0.5 (badger's recommended value).
func NewGCService(db *badger.DB, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{
		db:           db,
		interval:     interval,
		discardRatio: 0.5,
		name:         "badger-gc",
	}
}

// Serve implements suture.Service, looping until context cancellation.
func (s *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce()
		}
	}
}

// runOnce repeats GC passes while badger keeps finding files to rewrite.
func (s *GCService) runOnce() {
	passes := 0
	for {
		err := s.db.RunValueLogGC(s.discardRatio)
		if err == nil {
			passes++
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
			logging.Error().Err(err).Msg("Badger value-log GC failed")
		}
		break
	}
	if passes > 0 {
		logging.Debug().Int("passes", passes).Msg("Badger value-log GC reclaimed space")
	}
}

// String implements fmt.Stringer so suture can identify the service in
// log messages.
func (s *GCService) String() string {
	return s.name
}
