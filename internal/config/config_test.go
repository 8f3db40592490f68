// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Primary.URL = "https://discovery.example.com"
	cfg.Primary.APIKey = "test-key"
	cfg.Enrichment.URL = "https://enrich.example.com"
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing primary url", func(c *Config) { c.Primary.URL = "" }},
		{"bad primary url scheme", func(c *Config) { c.Primary.URL = "ftp://x" }},
		{"missing api key", func(c *Config) { c.Primary.APIKey = "" }},
		{"zero token cost", func(c *Config) { c.Primary.TokenCost = 0 }},
		{"negative refill", func(c *Config) { c.Primary.RefillPerMinute = -1 }},
		{"ceiling below cost", func(c *Config) { c.Primary.TokenCeiling = 10 }},
		{"zero max pages", func(c *Config) { c.Primary.MaxPages = 0 }},
		{"missing enrichment url", func(c *Config) { c.Enrichment.URL = "" }},
		{"zero rps", func(c *Config) { c.Enrichment.RequestsPerSecond = 0 }},
		{"zero burst", func(c *Config) { c.Enrichment.Burst = 0 }},
		{"zero max attempts", func(c *Config) { c.Enrichment.MaxAttempts = 0 }},
		{"zero max concurrent", func(c *Config) { c.Sync.MaxConcurrent = 0 }},
		{"zero mutation batch", func(c *Config) { c.Sync.MutationBatchSize = 0 }},
		{"missing ops addr", func(c *Config) { c.Ops.Addr = "" }},
		{"zero shutdown timeout", func(c *Config) { c.Ops.ShutdownTimeout = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoad_FileAndEnvLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
primary:
  url: https://discovery.example.com
  api_key: file-key
  token_cost: 60
enrichment:
  url: https://enrich.example.com
sync:
  cooldown: 90s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("STORESYNC_PRIMARY_API_KEY", "env-key")
	t.Setenv("STORESYNC_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Primary.TokenCost != 60 {
		t.Errorf("file override missing: token_cost = %d, want 60", cfg.Primary.TokenCost)
	}
	if cfg.Primary.APIKey != "env-key" {
		t.Errorf("env should beat file: api_key = %q", cfg.Primary.APIKey)
	}
	if cfg.Sync.Cooldown != 90*time.Second {
		t.Errorf("cooldown = %v, want 90s", cfg.Sync.Cooldown)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched defaults survive layering.
	if cfg.Sync.MutationBatchSize != 1000 {
		t.Errorf("default mutation_batch_size lost: %d", cfg.Sync.MutationBatchSize)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"STORESYNC_PRIMARY_API_KEY", "primary.api_key"},
		{"STORESYNC_PRIMARY_TOKEN_COST", "primary.token_cost"},
		{"STORESYNC_ENRICHMENT_REQUESTS_PER_SECOND", "enrichment.requests_per_second"},
		{"STORESYNC_SYNC_COOLDOWN", "sync.cooldown"},
		{"STORESYNC_STORE_PATH", "store.path"},
		{"STORESYNC_LOGGING_FORMAT", "logging.format"},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
