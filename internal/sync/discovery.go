// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

/*
discovery.go - Primary Source (Discovery) API Client

The discovery source lists the full current item-identifier set for a
storefront and charges tokens per call against a shared, slowly-regenerating
account pool. The response echoes the account's own token accounting, which
is the only consumption number we ever trust — the true cost varies and is
never inferred locally.

Request configuration:
  - Authentication: X-Api-Key header on all requests
  - Pagination: page parameter, aggregated until the reported total or a
    configured page ceiling
  - Quota echo: every successful page updates the primary token bucket

Error mapping:
  - HTTP 402 -> ErrQuotaExhausted (the upstream could not afford the call)
  - HTTP 429 -> one fixed cooldown then one retry, then ErrRateLimited
  - network/timeout -> one immediate retry of the same page, then ErrTransient
*/
package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/storesync/internal/logging"
	"github.com/tomtom215/storesync/internal/metrics"
	"github.com/tomtom215/storesync/internal/models"
	"github.com/tomtom215/storesync/internal/quota"
)

// Discoverer is the discovery contract consumed by the orchestrators.
// Satisfied by *DiscoveryClient and by the circuit breaker wrapper.
type Discoverer interface {
	Discover(ctx context.Context, catalog *models.Catalog) (*models.DiscoveryResult, error)
}

// DiscoveryClientConfig configures a DiscoveryClient.
type DiscoveryClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// MaxPages bounds pagination per call. Defaults to 20.
	MaxPages int
	PageSize int

	// RateLimitCooldown is the wait before the single retry after an
	// upstream 429. Defaults to 60s.
	RateLimitCooldown time.Duration
}

// DiscoveryClient talks to the primary source. Safe for concurrent use; the
// batch policy fans out over one shared client.
type DiscoveryClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	bucket     *quota.Bucket
	maxPages   int
	pageSize   int
	cooldown   time.Duration
}

// discoveryPage is the upstream's page response. The token fields are the
// account's own accounting, echoed verbatim.
type discoveryPage struct {
	ItemIDs        []string `json:"item_ids"`
	Total          int      `json:"total"`
	StorefrontName string   `json:"storefront_name,omitempty"`
	TokensLeft     int      `json:"tokens_left"`
	TokensConsumed int      `json:"tokens_consumed"`
	Timestamp      int64    `json:"timestamp"` // epoch millis, upstream clock
}

// NewDiscoveryClient creates a discovery client that reports quota
// observations into bucket.
func NewDiscoveryClient(cfg DiscoveryClientConfig, bucket *quota.Bucket) *DiscoveryClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	cooldown := cfg.RateLimitCooldown
	if cooldown == 0 {
		cooldown = 60 * time.Second
	}
	// A zero page ceiling would turn every Discover into an empty success
	// and reconcile would read that as "remove everything".
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 20
	}
	return &DiscoveryClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		bucket:     bucket,
		maxPages:   maxPages,
		pageSize:   cfg.PageSize,
		cooldown:   cooldown,
	}
}

// Discover fetches the full current item set for a catalog, aggregating
// pages until the reported total is reached or the page ceiling is hit.
// Every successful page updates the primary token bucket from the response's
// own accounting.
func (c *DiscoveryClient) Discover(ctx context.Context, catalog *models.Catalog) (*models.DiscoveryResult, error) {
	start := time.Now()
	result := &models.DiscoveryResult{ItemIDs: make(map[string]struct{})}

	for page := 0; page < c.maxPages; page++ {
		resp, err := c.fetchPage(ctx, catalog.ExternalKey, page)
		if err != nil {
			metrics.RecordDiscovery(discoveryResultLabel(err), time.Since(start))
			return nil, err
		}

		for _, id := range resp.ItemIDs {
			result.ItemIDs[id] = struct{}{}
		}
		result.TotalAvailable = resp.Total
		if resp.StorefrontName != "" {
			result.SourceReportedName = resp.StorefrontName
		}
		result.TokensConsumed += resp.TokensConsumed

		// Authoritative override: the upstream's count always wins over
		// any local reservation.
		if err := c.bucket.Observe(resp.TokensLeft, resp.Timestamp); err != nil {
			logging.Error().Err(err).Str("storefront", catalog.ExternalKey).Msg("Failed to persist quota observation")
		}
		result.Quota = &models.QuotaPool{
			AvailableUnits:    resp.TokensLeft,
			LastKnownAtMillis: resp.Timestamp,
		}

		if len(result.ItemIDs) >= resp.Total || len(resp.ItemIDs) == 0 {
			break
		}
	}

	logging.Debug().
		Str("storefront", catalog.ExternalKey).
		Int("items", len(result.ItemIDs)).
		Int("total_reported", result.TotalAvailable).
		Int("tokens_consumed", result.TokensConsumed).
		Msg("Discovery complete")

	metrics.RecordDiscovery("success", time.Since(start))
	return result, nil
}

// fetchPage requests one page, retrying once on transient failures and once
// after a cooldown on an upstream 429.
func (c *DiscoveryClient) fetchPage(ctx context.Context, storefrontKey string, page int) (*discoveryPage, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		resp, err := c.doPage(ctx, storefrontKey, page)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, ErrTransient):
			// Retry the same page immediately, once.
			continue
		case errors.Is(err, ErrRateLimited):
			if attempt > 0 {
				return nil, lastErr
			}
			logging.Warn().
				Str("storefront", storefrontKey).
				Dur("cooldown", c.cooldown).
				Msg("Discovery rate limited, cooling down before retry")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cooldown):
			}
		default:
			return nil, err
		}
	}

	return nil, lastErr
}

// doPage executes a single page request.
func (c *DiscoveryClient) doPage(ctx context.Context, storefrontKey string, page int) (*discoveryPage, error) {
	query := url.Values{}
	query.Set("storefront", storefrontKey)
	query.Set("page", strconv.Itoa(page))
	if c.pageSize > 0 {
		query.Set("page_size", strconv.Itoa(c.pageSize))
	}

	reqURL := fmt.Sprintf("%s/v1/storefronts/items?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("execute request: %w", ErrTransient)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusPaymentRequired:
		return nil, fmt.Errorf("storefront %s: %w", storefrontKey, ErrQuotaExhausted)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("storefront %s: %w", storefrontKey, ErrRateLimited)
	default:
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	var pageResp discoveryPage
	if err := json.NewDecoder(resp.Body).Decode(&pageResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &pageResp, nil
}

// discoveryResultLabel maps an error to its metrics label.
func discoveryResultLabel(err error) string {
	switch {
	case errors.Is(err, ErrQuotaExhausted):
		return "quota_exhausted"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "error"
	}
}
