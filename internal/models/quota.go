// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package models

// QuotaPool is the last authoritative observation of the primary source's
// token economy. The upstream account is shared across processes, so the
// snapshot is persisted and a restarted process rehydrates from it instead
// of assuming a fresh pool.
type QuotaPool struct {
	// AvailableUnits is the token count as last reported by the upstream.
	// Never negative.
	AvailableUnits int `json:"available_units"`

	// RefillRatePerMinute is the account's regeneration rate.
	RefillRatePerMinute int `json:"refill_rate_per_minute"`

	// LastKnownAtMillis is the upstream's own timestamp for the observation,
	// in epoch milliseconds. Regeneration is computed from this value, not
	// from local call time, to stay aligned with the upstream clock.
	LastKnownAtMillis int64 `json:"last_known_at_millis"`
}
