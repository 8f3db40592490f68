// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

/*
Package sync orchestrates catalog synchronization against the two upstream
sources and their independently-shaped limits.

Data flow for one catalog:

	DiscoveryClient -> full item-identifier set + authoritative quota echo
	mirror.Reconcile -> additions and removals vs the local mirror
	mirror.Apply     -> batched placeholder inserts and removals
	Pipeline         -> enrichment, inline or deferred through the queue

Two scheduling policies share those building blocks:

  - BatchPolicy: one round, as many catalogs concurrently as the current
    primary quota affords; the whole round's cost is reserved up front.
  - SequentialRunner: one catalog at a time as a long-lived background run,
    waiting for quota before each unit and pacing with a fixed cooldown,
    with live progress per owner.

Manager is the facade the rest of the program talks to. Progress is
observable two ways: polled snapshots from the Registry and pushed
ProgressEvents on the watermill bus.
*/
package sync
