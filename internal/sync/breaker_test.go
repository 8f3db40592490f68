// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/storesync/internal/models"
)

func TestBreakerPassesThroughSuccess(t *testing.T) {
	discoverer := newFakeDiscoverer()
	discoverer.setResult("s1", []string{"a", "b"}, 50)
	breaker := NewBreakerDiscoverer(discoverer)

	result, err := breaker.Discover(context.Background(), &models.Catalog{ExternalKey: "s1"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(result.ItemIDs) != 2 {
		t.Errorf("items = %d, want 2", len(result.ItemIDs))
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	discoverer := newFakeDiscoverer()
	discoverer.errs["down"] = errors.New("connection refused")
	breaker := NewBreakerDiscoverer(discoverer)
	ctx := context.Background()

	// Feed enough consecutive failures to cross the minimum sample and
	// the failure-rate threshold.
	for i := 0; i < 10; i++ {
		if _, err := breaker.Discover(ctx, &models.Catalog{ExternalKey: "down"}); err == nil {
			t.Fatal("expected failure")
		}
	}

	before := discoverer.callCount()
	_, err := breaker.Discover(ctx, &models.Catalog{ExternalKey: "down"})
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient from open circuit", err)
	}
	if discoverer.callCount() != before {
		t.Error("open circuit still reached the inner discoverer")
	}
}

func TestBreakerIgnoresQuotaRejections(t *testing.T) {
	discoverer := newFakeDiscoverer()
	discoverer.errs["broke"] = ErrQuotaExhausted
	breaker := NewBreakerDiscoverer(discoverer)
	ctx := context.Background()

	// Quota rejections are expected behavior and never trip the breaker.
	for i := 0; i < 20; i++ {
		if _, err := breaker.Discover(ctx, &models.Catalog{ExternalKey: "broke"}); !errors.Is(err, ErrQuotaExhausted) {
			t.Fatalf("call %d: err = %v, want ErrQuotaExhausted", i, err)
		}
	}
	if got := discoverer.callCount(); got != 20 {
		t.Errorf("inner calls = %d, want all 20 to pass through", got)
	}
}
