// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package models

import "time"

// CatalogOutcome classifies the result of processing one catalog.
type CatalogOutcome string

const (
	OutcomeSynced  CatalogOutcome = "synced"
	OutcomeFailed  CatalogOutcome = "failed"
	OutcomeSkipped CatalogOutcome = "skipped" // not attempted (budget exhausted), not a failure
)

// CatalogResult is the per-catalog outcome recorded by both orchestrator
// policies. A failed catalog never fails the batch wholesale; it is reported
// here and siblings proceed.
type CatalogResult struct {
	CatalogID   int64          `json:"catalog_id"`
	ExternalKey string         `json:"external_key"`
	Outcome     CatalogOutcome `json:"outcome"`
	Added       int            `json:"added"`
	Removed     int            `json:"removed"`
	TokensUsed  int            `json:"tokens_used"`
	Error       string         `json:"error,omitempty"`
}

// BatchResult aggregates one batch-parallel round.
type BatchResult struct {
	Results    []CatalogResult `json:"results"`
	Attempted  int             `json:"attempted"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Skipped    int             `json:"skipped"`
	Added      int             `json:"added"`
	Removed    int             `json:"removed"`
	TokensUsed int             `json:"tokens_used"`
}

// ProgressRecord is the live view of one sequential run, keyed by the owner
// that started it. It is mutated only by the owning run goroutine; readers
// get deep copies via the registry.
type ProgressRecord struct {
	OwnerID        string          `json:"owner_id"`
	Running        bool            `json:"running"`
	TotalUnits     int             `json:"total_units"`
	ProcessedUnits int             `json:"processed_units"`
	CurrentUnit    *Catalog        `json:"current_unit,omitempty"`
	Results        []CatalogResult `json:"results"`
	TokensUsed     int             `json:"tokens_used"`
	StartedAt      time.Time       `json:"started_at"`
	NextUnitETA    *time.Time      `json:"next_unit_eta,omitempty"`
}

// Clone returns a deep copy safe to hand to a concurrent reader while the
// owning goroutine keeps mutating the original.
func (p *ProgressRecord) Clone() *ProgressRecord {
	if p == nil {
		return nil
	}
	cp := *p
	if p.CurrentUnit != nil {
		unit := *p.CurrentUnit
		cp.CurrentUnit = &unit
	}
	if p.NextUnitETA != nil {
		eta := *p.NextUnitETA
		cp.NextUnitETA = &eta
	}
	cp.Results = make([]CatalogResult, len(p.Results))
	copy(cp.Results, p.Results)
	return &cp
}
