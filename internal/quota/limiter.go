// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package quota

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/storesync/internal/metrics"
)

// Limiter guards calls to the enrichment source with a requests-per-second
// limit plus a burst allowance absorbed instantly. Grants are FIFO across
// concurrent callers (rate.Limiter.Wait queues in arrival order), so no
// caller starves.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter creates a limiter allowing requestsPerSecond sustained with
// burst extra slots.
func NewLimiter(requestsPerSecond, burst int) *Limiter {
	return &Limiter{
		rl: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Acquire blocks the caller until a slot is free or the context is canceled.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := l.rl.Wait(ctx); err != nil {
		return err
	}
	metrics.SecondaryAcquireWait.Observe(time.Since(start).Seconds())
	return nil
}
