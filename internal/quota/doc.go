// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

// Package quota implements the two rate-limiting primitives that bound all
// upstream traffic.
//
// Bucket models the primary source's regenerating token pool: an optimistic
// local estimate ("reserve") corrected by authoritative upstream observations
// ("observe"), persisted across restarts because the upstream account is
// shared, not per-process.
//
// Limiter is the secondary source's requests-per-second limiter with a small
// burst allowance, in-memory only — that limit resets on a sub-second cadence
// and loses nothing on restart.
package quota
