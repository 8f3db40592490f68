// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package sync

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy for the sync core. Failures local to one catalog or one
// item are absorbed into per-unit results; only whole-batch preconditions
// (nothing affordable, run already active) surface as top-level errors.
var (
	// ErrQuotaExhausted: the primary source rejected a call for
	// insufficient tokens. Distinct from InsufficientQuotaError, which is
	// the local pre-flight check.
	ErrQuotaExhausted = errors.New("primary source quota exhausted")

	// ErrRateLimited: an upstream rejected for request pacing. Retried
	// internally with backoff; surfaces only when retries are exhausted.
	ErrRateLimited = errors.New("rate limited by upstream")

	// ErrForbidden: credential or permission problem. Non-retryable,
	// surfaced immediately after a single token refresh attempt.
	ErrForbidden = errors.New("forbidden by upstream")

	// ErrNotFound: the item does not exist upstream. Recorded, not an
	// error to the caller.
	ErrNotFound = errors.New("item not found upstream")

	// ErrTransient: network-level failure. Retried once automatically.
	ErrTransient = errors.New("transient upstream failure")

	// ErrAlreadyRunning: a sequential run is already active for the owner.
	ErrAlreadyRunning = errors.New("sequential run already active for owner")
)

// InsufficientQuotaError reports that the primary bucket cannot afford the
// requested work now and how long until enough regenerates.
type InsufficientQuotaError struct {
	Available     int
	Required      int
	EstimatedWait time.Duration
}

func (e *InsufficientQuotaError) Error() string {
	return fmt.Sprintf("insufficient quota: %d available, %d required, retry in ~%s",
		e.Available, e.Required, e.EstimatedWait)
}
