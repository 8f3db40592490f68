// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package quota

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/storesync/internal/models"
)

// quotaKeyPrefix namespaces quota snapshots in the shared BadgerDB.
const quotaKeyPrefix = "quota:"

// BadgerStore implements Store using BadgerDB for durable snapshots.
// Suitable for production: observations survive process restarts.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a BadgerDB-backed quota store.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Load retrieves the last persisted snapshot for an account, or (nil, nil)
// if the account has never been observed.
func (s *BadgerStore) Load(accountKey string) (*models.QuotaPool, error) {
	var pool models.QuotaPool

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(quotaKeyPrefix + accountKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &pool)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load quota %s: %w", accountKey, err)
	}
	return &pool, nil
}

// Save durably writes the snapshot for an account.
func (s *BadgerStore) Save(accountKey string, pool *models.QuotaPool) error {
	data, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("marshal quota %s: %w", accountKey, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(quotaKeyPrefix+accountKey), data)
	})
	if err != nil {
		return fmt.Errorf("save quota %s: %w", accountKey, err)
	}
	return nil
}
