// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

// Package supervisor builds the suture supervision tree for the Storesync
// process.
//
// The tree has three child layers under one root:
//
//	storesync
//	├── state-layer     badger value-log GC
//	├── sync-layer      sync manager + background enrichment drain
//	└── ops-layer       metrics/health HTTP listener
//
// Layers fail independently. Suture restarts a crashed service with
// exponential backoff; once a layer exceeds the failure threshold the
// whole layer backs off, leaving the siblings untouched.
//
// Service wrappers adapting component lifecycles to suture's Serve pattern
// live in the services subpackage.
package supervisor
