// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package models

// Catalog is one remote storefront to synchronize. Supplied by the caller;
// read-only to the sync core except for the running token consumption counter.
type Catalog struct {
	ID                  int64  `json:"id"`
	ExternalKey         string `json:"external_key"` // upstream storefront identifier
	DisplayName         string `json:"display_name"`
	TokensConsumedTotal int    `json:"tokens_consumed_total"`
}

// MirrorEntry is an item's membership in a catalog as recorded locally.
// The mirror is effectively a set keyed by (CatalogID, ItemID).
type MirrorEntry struct {
	ItemID    string `json:"item_id"`
	CatalogID int64  `json:"catalog_id"`
}

// ItemAttributes holds the descriptive fields returned by the enrichment
// source for a single item.
type ItemAttributes struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	Brand     string `json:"brand,omitempty"`
	SalesRank int    `json:"sales_rank,omitempty"`
}

// DiscoveryResult is the transient product of one discovery call.
type DiscoveryResult struct {
	ItemIDs            map[string]struct{} `json:"-"`
	TotalAvailable     int                 `json:"total_available"`
	SourceReportedName string              `json:"source_reported_name,omitempty"`

	// TokensConsumed is the summed upstream-reported cost of the call(s)
	// behind this result. Never inferred locally.
	TokensConsumed int `json:"tokens_consumed"`

	// Quota is the upstream's own remaining-token accounting echoed on the
	// response, nil if the upstream omitted it.
	Quota *QuotaPool `json:"quota,omitempty"`
}
