// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

// Package config defines Storesync configuration and its koanf-based loader.
// Precedence: environment variables > config file > built-in defaults.
package config

import "time"

// Config is the root configuration for all Storesync components.
type Config struct {
	Primary    PrimaryConfig    `koanf:"primary"`    // Discovery source (token-priced catalog listing API)
	Enrichment EnrichmentConfig `koanf:"enrichment"` // Per-item attribute source (requests-per-second limited)
	Sync       SyncConfig       `koanf:"sync"`
	Store      StoreConfig      `koanf:"store"`
	Ops        OpsConfig        `koanf:"ops"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// PrimaryConfig configures the discovery source and its token economy.
type PrimaryConfig struct {
	URL        string        `koanf:"url"`
	APIKey     string        `koanf:"api_key"`
	AccountKey string        `koanf:"account_key"` // key under which the quota snapshot is persisted
	Timeout    time.Duration `koanf:"timeout"`

	// TokenCost is the fixed token price of one catalog discovery.
	// The upstream reports authoritative consumption on every response;
	// this constant only drives budgeting and reservations.
	TokenCost int `koanf:"token_cost"`

	// RefillPerMinute is the account's token regeneration rate.
	RefillPerMinute int `koanf:"refill_per_minute"`

	// TokenCeiling caps the local regeneration estimate. The upstream has
	// no enforced maximum but practical plans do.
	TokenCeiling int `koanf:"token_ceiling"`

	// MaxPages bounds pagination per discovery call so a huge catalog
	// cannot stall a round indefinitely.
	MaxPages int `koanf:"max_pages"`

	// PageSize is the requested page size for catalog listing.
	PageSize int `koanf:"page_size"`
}

// EnrichmentConfig configures the per-item attribute source.
type EnrichmentConfig struct {
	URL     string        `koanf:"url"`
	Token   string        `koanf:"token"` // bearer credential, refreshed out-of-band on 403
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond and Burst shape the secondary rate limit.
	RequestsPerSecond int `koanf:"requests_per_second"`
	Burst             int `koanf:"burst"`

	// MaxAttempts bounds retries for one item before its error is recorded.
	MaxAttempts int `koanf:"max_attempts"`

	// RateLimitCooldown is the flat wait applied on an explicit upstream
	// rate-limit signal (HTTP 429).
	RateLimitCooldown time.Duration `koanf:"rate_limit_cooldown"`
}

// SyncConfig configures both orchestrator policies.
type SyncConfig struct {
	// MaxConcurrent bounds catalog fan-out within one batch-parallel round.
	MaxConcurrent int `koanf:"max_concurrent"`

	// Cooldown is the fixed inter-catalog pause of the sequential policy,
	// independent of quota state.
	Cooldown time.Duration `koanf:"cooldown"`

	// MutationBatchSize bounds one mirror write batch.
	MutationBatchSize int `koanf:"mutation_batch_size"`

	// InlineEnrichment enriches added items before a sync call returns;
	// when false, additions are queued for the background drain.
	InlineEnrichment bool `koanf:"inline_enrichment"`

	// DrainInterval is how often the background enrichment drain runs.
	DrainInterval time.Duration `koanf:"drain_interval"`

	// DrainLimit bounds entries processed per drain pass.
	DrainLimit int `koanf:"drain_limit"`

	// RetryAttempts and RetryDelay shape transient-failure retries.
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`
}

// StoreConfig configures the badger-backed local state (quota snapshots,
// mirror entries, enrichment queue).
type StoreConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"` // tests and ephemeral deployments
}

// OpsConfig configures the metrics/health HTTP listener.
type OpsConfig struct {
	Addr string `koanf:"addr"`

	// ShutdownTimeout bounds graceful shutdown of the listener.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// GCInterval is how often badger value-log garbage collection runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// loaded first, then overridden by config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Primary: PrimaryConfig{
			URL:             "",
			APIKey:          "",
			AccountKey:      "default",
			Timeout:         30 * time.Second,
			TokenCost:       50,
			RefillPerMinute: 22,
			TokenCeiling:    4800,
			MaxPages:        20,
			PageSize:        500,
		},
		Enrichment: EnrichmentConfig{
			URL:               "",
			Token:             "",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 1,
			Burst:             3,
			MaxAttempts:       5,
			RateLimitCooldown: 60 * time.Second,
		},
		Sync: SyncConfig{
			MaxConcurrent:     4,
			Cooldown:          3 * time.Minute,
			MutationBatchSize: 1000,
			InlineEnrichment:  false,
			DrainInterval:     10 * time.Minute,
			DrainLimit:        200,
			RetryAttempts:     3,
			RetryDelay:        2 * time.Second,
		},
		Store: StoreConfig{
			Path:     "/data/storesync",
			InMemory: false,
		},
		Ops: OpsConfig{
			Addr:            ":9090",
			ShutdownTimeout: 10 * time.Second,
			GCInterval:      10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
