// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

// Package models defines the shared data types passed between the quota,
// mirror, and sync packages: quota pool snapshots, catalogs, discovery
// results, enrichment attributes, queue entries, and progress records.
//
// Types here are plain data. Behavior (regeneration math, diffing,
// scheduling) lives in the packages that own it.
package models
