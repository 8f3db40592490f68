// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package mirror

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/storesync/internal/models"
)

// Key prefixes for BadgerDB storage. Entries are stored under the catalog
// key; the item index maps an item back to every catalog containing it so
// enrichment can be applied across catalogs without a full scan.
const (
	catalogKeyPrefix = "mirror:c:" // mirror:c:<catalogID>:<itemID> -> record
	itemKeyPrefix    = "mirror:i:" // mirror:i:<itemID>:<catalogID> -> catalog key
)

// record is the stored form of one mirror entry. Attributes stays nil while
// the entry is a placeholder awaiting enrichment.
type record struct {
	ItemID     string                 `json:"item_id"`
	CatalogID  int64                  `json:"catalog_id"`
	Attributes *models.ItemAttributes `json:"attributes,omitempty"`
}

// BadgerStore implements Store using BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a BadgerDB-backed mirror store.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func catalogKey(catalogID int64, itemID string) []byte {
	return []byte(catalogKeyPrefix + strconv.FormatInt(catalogID, 10) + ":" + itemID)
}

func itemKey(itemID string, catalogID int64) []byte {
	return []byte(itemKeyPrefix + itemID + ":" + strconv.FormatInt(catalogID, 10))
}

// ListItemIDs returns the recorded item set for a catalog.
func (s *BadgerStore) ListItemIDs(_ context.Context, catalogID int64) (map[string]struct{}, error) {
	prefix := []byte(catalogKeyPrefix + strconv.FormatInt(catalogID, 10) + ":")
	ids := make(map[string]struct{})

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			ids[string(key[len(prefix):])] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list catalog %d: %w", catalogID, err)
	}
	return ids, nil
}

// UpsertPlaceholders records catalog membership for items that do not yet
// have an entry. Existing entries (including already-enriched ones) are left
// untouched, which makes retried batches safe.
func (s *BadgerStore) UpsertPlaceholders(_ context.Context, catalogID int64, itemIDs []string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, itemID := range itemIDs {
			key := catalogKey(catalogID, itemID)
			if _, err := txn.Get(key); err == nil {
				continue // already present, keep whatever state it has
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			data, err := json.Marshal(record{ItemID: itemID, CatalogID: catalogID})
			if err != nil {
				return fmt.Errorf("marshal entry %s: %w", itemID, err)
			}
			if err := txn.Set(key, data); err != nil {
				return err
			}
			if err := txn.Set(itemKey(itemID, catalogID), key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert placeholders catalog %d: %w", catalogID, err)
	}
	return nil
}

// ApplyEnrichment fills in attributes for an item in every catalog that
// contains it. Items the mirror no longer tracks are a no-op.
func (s *BadgerStore) ApplyEnrichment(_ context.Context, itemID string, attrs *models.ItemAttributes) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(itemKeyPrefix + itemID + ":")
		it := txn.NewIterator(opts)

		// Collect catalog keys first; mutating while iterating the same
		// prefix is undefined in badger.
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				it.Close()
				return err
			}
			keys = append(keys, val)
		}
		it.Close()

		for _, key := range keys {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			var rec record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}

			rec.Attributes = attrs
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := txn.Set(key, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply enrichment %s: %w", itemID, err)
	}
	return nil
}

// Remove deletes items from a catalog's recorded set. Missing items are
// ignored so retried batches stay idempotent.
func (s *BadgerStore) Remove(_ context.Context, catalogID int64, itemIDs []string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, itemID := range itemIDs {
			if err := txn.Delete(catalogKey(catalogID, itemID)); err != nil {
				return err
			}
			if err := txn.Delete(itemKey(itemID, catalogID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove from catalog %d: %w", catalogID, err)
	}
	return nil
}

// GetEntry returns one stored entry with its attributes, or nil if absent.
// Used by tests and the read side of the presentation layer.
func (s *BadgerStore) GetEntry(_ context.Context, catalogID int64, itemID string) (*models.MirrorEntry, *models.ItemAttributes, error) {
	var rec record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(catalogKey(catalogID, itemID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get entry %d/%s: %w", catalogID, itemID, err)
	}

	return &models.MirrorEntry{ItemID: rec.ItemID, CatalogID: rec.CatalogID}, rec.Attributes, nil
}
