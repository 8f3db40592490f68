// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validatePrimary(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateOps(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePrimary() error {
	if c.Primary.URL == "" {
		return fmt.Errorf("primary.url is required")
	}
	if !strings.HasPrefix(c.Primary.URL, "http://") && !strings.HasPrefix(c.Primary.URL, "https://") {
		return fmt.Errorf("primary.url must start with http:// or https://")
	}
	if c.Primary.APIKey == "" {
		return fmt.Errorf("primary.api_key is required")
	}
	if c.Primary.TokenCost <= 0 {
		return fmt.Errorf("primary.token_cost must be positive, got %d", c.Primary.TokenCost)
	}
	if c.Primary.RefillPerMinute <= 0 {
		return fmt.Errorf("primary.refill_per_minute must be positive, got %d", c.Primary.RefillPerMinute)
	}
	if c.Primary.TokenCeiling < c.Primary.TokenCost {
		return fmt.Errorf("primary.token_ceiling (%d) must be at least token_cost (%d)",
			c.Primary.TokenCeiling, c.Primary.TokenCost)
	}
	if c.Primary.MaxPages <= 0 {
		return fmt.Errorf("primary.max_pages must be positive, got %d", c.Primary.MaxPages)
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	if c.Enrichment.URL == "" {
		return fmt.Errorf("enrichment.url is required")
	}
	if c.Enrichment.RequestsPerSecond <= 0 {
		return fmt.Errorf("enrichment.requests_per_second must be positive, got %d", c.Enrichment.RequestsPerSecond)
	}
	if c.Enrichment.Burst < 1 {
		return fmt.Errorf("enrichment.burst must be at least 1, got %d", c.Enrichment.Burst)
	}
	if c.Enrichment.MaxAttempts < 1 {
		return fmt.Errorf("enrichment.max_attempts must be at least 1, got %d", c.Enrichment.MaxAttempts)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.MaxConcurrent < 1 {
		return fmt.Errorf("sync.max_concurrent must be at least 1, got %d", c.Sync.MaxConcurrent)
	}
	if c.Sync.MutationBatchSize < 1 {
		return fmt.Errorf("sync.mutation_batch_size must be at least 1, got %d", c.Sync.MutationBatchSize)
	}
	if c.Sync.Cooldown < 0 {
		return fmt.Errorf("sync.cooldown must not be negative")
	}
	if c.Sync.RetryAttempts < 1 {
		return fmt.Errorf("sync.retry_attempts must be at least 1, got %d", c.Sync.RetryAttempts)
	}
	return nil
}

func (c *Config) validateOps() error {
	if c.Ops.Addr == "" {
		return fmt.Errorf("ops.addr is required")
	}
	if c.Ops.ShutdownTimeout <= 0 {
		return fmt.Errorf("ops.shutdown_timeout must be positive")
	}
	if c.Ops.GCInterval < 0 {
		return fmt.Errorf("ops.gc_interval must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
