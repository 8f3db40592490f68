// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

// Package metrics holds the shared Prometheus collectors for Storesync:
// token bucket levels, discovery/enrichment call outcomes, sync round
// durations, enrichment queue depth, and circuit breaker state.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quota metrics
	PrimaryTokensAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storesync_primary_tokens_available",
			Help: "Current estimate of primary source tokens available",
		},
	)

	PrimaryTokensReserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storesync_primary_tokens_reserved_total",
			Help: "Tokens optimistically reserved ahead of discovery rounds",
		},
	)

	SecondaryAcquireWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storesync_secondary_acquire_wait_seconds",
			Help:    "Time spent waiting for an enrichment rate limit slot",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Discovery metrics
	DiscoveryCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storesync_discovery_calls_total",
			Help: "Discovery calls by result",
		},
		[]string{"result"}, // "success", "quota_exhausted", "rate_limited", "transient", "error"
	)

	DiscoveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storesync_discovery_duration_seconds",
			Help:    "Duration of full (paginated) discovery calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Enrichment metrics
	EnrichmentCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storesync_enrichment_calls_total",
			Help: "Enrichment calls by result",
		},
		[]string{"result"}, // "success", "not_found", "forbidden", "rate_limited", "error"
	)

	EnrichmentQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storesync_enrichment_queue_depth",
			Help: "Pending entries in the deferred enrichment queue",
		},
	)

	// Sync metrics
	SyncRoundDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storesync_round_duration_seconds",
			Help:    "Duration of one sync round per policy",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"policy"}, // "batch", "sequential"
	)

	CatalogsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storesync_catalogs_processed_total",
			Help: "Catalogs processed by policy and outcome",
		},
		[]string{"policy", "outcome"},
	)

	MirrorMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storesync_mirror_mutations_total",
			Help: "Mirror item additions and removals applied",
		},
		[]string{"kind"}, // "add", "remove"
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storesync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"breaker"},
	)
)

// RecordDiscovery records one discovery call outcome with its duration.
func RecordDiscovery(result string, duration time.Duration) {
	DiscoveryCalls.WithLabelValues(result).Inc()
	DiscoveryDuration.Observe(duration.Seconds())
}

// RecordEnrichment records one enrichment call outcome.
func RecordEnrichment(result string) {
	EnrichmentCalls.WithLabelValues(result).Inc()
}

// RecordCatalog records one per-catalog outcome under a policy.
func RecordCatalog(policy, outcome string) {
	CatalogsProcessed.WithLabelValues(policy, outcome).Inc()
}

// RecordSyncRound records the duration of one orchestrator round.
func RecordSyncRound(policy string, duration time.Duration) {
	SyncRoundDuration.WithLabelValues(policy).Observe(duration.Seconds())
}
