// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// mockManager tracks lifecycle calls.
type mockManager struct {
	started  atomic.Int32
	stopped  atomic.Int32
	startErr error
	stopErr  error
}

func (m *mockManager) Start(context.Context) error {
	m.started.Add(1)
	return m.startErr
}

func (m *mockManager) Stop() error {
	m.stopped.Add(1)
	return m.stopErr
}

func TestSyncServiceLifecycle(t *testing.T) {
	mgr := &mockManager{}
	svc := NewSyncService(mgr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Serve(ctx)
	}()

	// Give Serve a moment to call Start, then cancel.
	deadline := time.Now().Add(time.Second)
	for mgr.started.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if mgr.started.Load() != 1 {
		t.Errorf("Start calls = %d, want 1", mgr.started.Load())
	}
	if mgr.stopped.Load() != 1 {
		t.Errorf("Stop calls = %d, want 1", mgr.stopped.Load())
	}
}

func TestSyncServiceStartFailure(t *testing.T) {
	mgr := &mockManager{startErr: errors.New("no database")}
	svc := NewSyncService(mgr)

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("Serve returned nil, want start error")
	}
	if mgr.stopped.Load() != 0 {
		t.Errorf("Stop calls = %d, want 0 after failed start", mgr.stopped.Load())
	}
}

func TestSyncServiceStopFailure(t *testing.T) {
	mgr := &mockManager{stopErr: errors.New("goroutines stuck")}
	svc := NewSyncService(mgr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Serve(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		t.Errorf("Serve err = %v, want wrapped stop error", err)
	}
}

func TestSyncServiceString(t *testing.T) {
	if got := NewSyncService(&mockManager{}).String(); got != "sync-manager" {
		t.Errorf("String() = %q, want sync-manager", got)
	}
}
