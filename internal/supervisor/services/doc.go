// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

// Package services contains suture.Service wrappers adapting Storesync
// component lifecycles to the supervision tree.
//
// Each wrapper follows the same shape: start the component, block on the
// context, shut the component down, return ctx.Err() so suture treats the
// exit as a normal stop rather than a crash.
package services
