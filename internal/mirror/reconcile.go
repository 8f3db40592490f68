// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package mirror

import "sort"

// Diff is the result of reconciling a discovered identifier set against the
// mirror's recorded set. Slices are sorted for deterministic batching and
// logging.
type Diff struct {
	ToAdd    []string
	ToRemove []string
}

// Empty reports whether the diff carries no mutations.
func (d Diff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// Reconcile computes the mutations that bring the mirror in line with a
// discovery result: toAdd = discovered − mirror, toRemove = mirror − discovered.
// Pure function, no side effects; the caller applies the mutations.
func Reconcile(discovered, mirrored map[string]struct{}) Diff {
	var diff Diff

	for id := range discovered {
		if _, ok := mirrored[id]; !ok {
			diff.ToAdd = append(diff.ToAdd, id)
		}
	}
	for id := range mirrored {
		if _, ok := discovered[id]; !ok {
			diff.ToRemove = append(diff.ToRemove, id)
		}
	}

	sort.Strings(diff.ToAdd)
	sort.Strings(diff.ToRemove)
	return diff
}
