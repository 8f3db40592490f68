// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package sync

import (
	"sync"
	"time"

	"github.com/tomtom215/storesync/internal/models"
)

// Registry tracks live sequential runs keyed by owner. One run per owner at
// a time; reads hand out deep copies so the owning goroutine can keep
// mutating its record without racing observers.
type Registry struct {
	mu   sync.Mutex
	runs map[string]*ProgressEntry
}

// ProgressEntry pairs a run's record with its cancel handle.
type ProgressEntry struct {
	Record *models.ProgressRecord
	cancel func()
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*ProgressEntry)}
}

// Begin registers a new run for ownerID. Returns ErrAlreadyRunning while a
// previous run for the same owner is still active; other owners are
// unaffected.
func (r *Registry) Begin(ownerID string, totalUnits int, cancel func()) (*models.ProgressRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.runs[ownerID]; ok && existing.Record.Running {
		return nil, ErrAlreadyRunning
	}

	record := &models.ProgressRecord{
		OwnerID:    ownerID,
		Running:    true,
		TotalUnits: totalUnits,
		Results:    make([]models.CatalogResult, 0, totalUnits),
		StartedAt:  time.Now().UTC(),
	}
	r.runs[ownerID] = &ProgressEntry{Record: record, cancel: cancel}
	return record, nil
}

// Get returns a deep copy of the owner's latest run, or nil when the owner
// never started one. Finished runs remain readable until replaced.
func (r *Registry) Get(ownerID string) *models.ProgressRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.runs[ownerID]
	if !ok {
		return nil
	}
	return entry.Record.Clone()
}

// Update applies fn to the owner's record under the registry lock. A no-op
// for unknown owners.
func (r *Registry) Update(ownerID string, fn func(*models.ProgressRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.runs[ownerID]; ok {
		fn(entry.Record)
	}
}

// Finish marks the owner's run as no longer running. The record stays for
// later Progress reads.
func (r *Registry) Finish(ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.runs[ownerID]; ok {
		entry.Record.Running = false
		entry.Record.CurrentUnit = nil
		entry.Record.NextUnitETA = nil
	}
}

// Stop cancels the owner's run if one is active. Cancellation is
// cooperative: the run goroutine notices between catalogs, never mid-unit.
// Reports whether a running run was found.
func (r *Registry) Stop(ownerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.runs[ownerID]
	if !ok || !entry.Record.Running {
		return false
	}
	if entry.cancel != nil {
		entry.cancel()
	}
	return true
}
