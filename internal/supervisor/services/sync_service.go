// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package services

import (
	"context"
	"fmt"
)

// StartStopManager matches the sync manager's lifecycle so the wrapper can
// adapt it to suture's Serve pattern without importing the sync package.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SyncService wraps the sync manager as a supervised service.
//
// It adapts the Start/Stop lifecycle to suture's Serve pattern:
//  1. Start(ctx) launches the manager's background drain loop
//  2. Serve blocks until the context is canceled
//  3. Stop() waits for the manager's goroutines to finish
type SyncService struct {
	manager StartStopManager
	name    string
}

// NewSyncService creates a sync service wrapper.
func NewSyncService(manager StartStopManager) *SyncService {
	return &SyncService{
		manager: manager,
		name:    "sync-manager",
	}
}

// Serve implements suture.Service. If Start fails the error is returned
// immediately, letting suture restart the service per its backoff policy.
func (s *SyncService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("sync manager start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("sync manager stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer so suture can identify the service in
// log messages.
func (s *SyncService) String() string {
	return s.name
}
