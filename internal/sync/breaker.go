// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/storesync/internal/logging"
	"github.com/tomtom215/storesync/internal/metrics"
	"github.com/tomtom215/storesync/internal/models"
)

// BreakerDiscoverer wraps a Discoverer with a circuit breaker so a dead or
// degraded primary source sheds load fast instead of stacking timeouts
// across a whole round.
//
// Quota and pacing rejections are expected operating conditions, not source
// failures; they bypass failure counting entirely.
type BreakerDiscoverer struct {
	inner Discoverer
	cb    *gobreaker.CircuitBreaker[*models.DiscoveryResult]
	name  string
}

// NewBreakerDiscoverer wraps inner with a breaker.
// Configuration:
// - Max 3 concurrent probes in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewBreakerDiscoverer(inner Discoverer) *BreakerDiscoverer {
	const cbName = "discovery-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[*models.DiscoveryResult](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false // need a minimum sample before tripping
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening discovery circuit")
				return true
			}
			return false
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Discovery circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},

		IsSuccessful: func(err error) bool {
			// Quota/pacing rejections are the upstream doing its job.
			return err == nil ||
				errors.Is(err, ErrQuotaExhausted) ||
				errors.Is(err, ErrRateLimited) ||
				errors.Is(err, context.Canceled)
		},
	})

	return &BreakerDiscoverer{inner: inner, cb: cb, name: cbName}
}

// Discover executes the wrapped discovery call under the breaker.
func (b *BreakerDiscoverer) Discover(ctx context.Context, catalog *models.Catalog) (*models.DiscoveryResult, error) {
	result, err := b.cb.Execute(func() (*models.DiscoveryResult, error) {
		return b.inner.Discover(ctx, catalog)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Err(err).Str("storefront", catalog.ExternalKey).Msg("Discovery rejected by open circuit")
			return nil, fmt.Errorf("discovery circuit open: %w", ErrTransient)
		}
		return nil, err
	}
	return result, nil
}

// stateToFloat maps breaker states onto the gauge encoding.
func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
