// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

/*
enrichment.go - Secondary Source (Enrichment) API Client

The enrichment source returns descriptive attributes for a single item. It
is priced in requests-per-second rather than tokens, so every call first
acquires a slot from the shared secondary limiter.

Retry ladder, bounded by MaxAttempts:
  - HTTP 5xx / network: exponential backoff (base doubling, capped)
  - HTTP 429: flat cooldown, then retry
  - HTTP 403: refresh the bearer token once, retry once, then ErrForbidden
  - HTTP 404: ErrNotFound immediately, never retried
*/
package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/storesync/internal/logging"
	"github.com/tomtom215/storesync/internal/metrics"
	"github.com/tomtom215/storesync/internal/models"
	"github.com/tomtom215/storesync/internal/quota"
)

// Enricher is the enrichment contract consumed by the pipeline.
type Enricher interface {
	Enrich(ctx context.Context, itemID string) (*models.ItemAttributes, error)
}

// TokenSource supplies and refreshes the enrichment bearer credential.
// Refresh is called at most once per enrichment attempt sequence, on an
// upstream 403.
type TokenSource interface {
	Token() string
	Refresh(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed credential and refuses refresh. Suits
// deployments where the token is rotated out-of-band via configuration.
type StaticTokenSource struct {
	token string
}

func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

func (s *StaticTokenSource) Token() string { return s.token }

func (s *StaticTokenSource) Refresh(context.Context) (string, error) {
	return "", fmt.Errorf("static token source cannot refresh")
}

// EnrichmentClientConfig configures an EnrichmentClient.
type EnrichmentClientConfig struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int

	// BackoffBase seeds the exponential delay for 5xx/network failures.
	// Defaults to 1s, doubling per attempt, capped at BackoffMax.
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// RateLimitCooldown is the flat wait applied after an upstream 429.
	// Defaults to 60s.
	RateLimitCooldown time.Duration
}

// EnrichmentClient fetches per-item attributes from the secondary source.
// Safe for concurrent use; all callers share one limiter and one token
// source.
type EnrichmentClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *quota.Limiter
	tokens     TokenSource

	maxAttempts int
	backoffBase time.Duration
	backoffMax  time.Duration
	cooldown    time.Duration

	// mu guards the cached credential across concurrent refreshes.
	mu    sync.Mutex
	token string
}

// itemResponse is the upstream's single-item payload.
type itemResponse struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url"`
	Brand     string `json:"brand"`
	SalesRank int    `json:"sales_rank"`
}

// NewEnrichmentClient creates an enrichment client gated by limiter.
func NewEnrichmentClient(cfg EnrichmentClientConfig, limiter *quota.Limiter, tokens TokenSource) *EnrichmentClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	base := cfg.BackoffBase
	if base == 0 {
		base = time.Second
	}
	maxDelay := cfg.BackoffMax
	if maxDelay == 0 {
		maxDelay = 60 * time.Second
	}
	cooldown := cfg.RateLimitCooldown
	if cooldown == 0 {
		cooldown = 60 * time.Second
	}
	return &EnrichmentClient{
		baseURL:     cfg.BaseURL,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     limiter,
		tokens:      tokens,
		maxAttempts: attempts,
		backoffBase: base,
		backoffMax:  maxDelay,
		cooldown:    cooldown,
		token:       tokens.Token(),
	}
}

// Enrich fetches attributes for one item, retrying per the client's ladder.
// A nil error always carries non-nil attributes.
func (c *EnrichmentClient) Enrich(ctx context.Context, itemID string) (*models.ItemAttributes, error) {
	var lastErr error
	refreshed := false

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		attrs, err := c.doItem(ctx, itemID)
		if err == nil {
			metrics.RecordEnrichment("success")
			return attrs, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, ErrNotFound):
			metrics.RecordEnrichment("not_found")
			return nil, err
		case errors.Is(err, ErrForbidden):
			if refreshed {
				metrics.RecordEnrichment("forbidden")
				return nil, err
			}
			refreshed = true
			token, rerr := c.tokens.Refresh(ctx)
			if rerr != nil {
				logging.Error().Err(rerr).Msg("Enrichment token refresh failed")
				metrics.RecordEnrichment("forbidden")
				return nil, err
			}
			c.mu.Lock()
			c.token = token
			c.mu.Unlock()
			logging.Info().Msg("Enrichment token refreshed after upstream 403")
			// Retry immediately with the new credential.
		case errors.Is(err, ErrRateLimited):
			if attempt == c.maxAttempts-1 {
				break
			}
			logging.Warn().
				Str("item_id", itemID).
				Dur("cooldown", c.cooldown).
				Msg("Enrichment rate limited, cooling down")
			if werr := sleepCtx(ctx, c.cooldown); werr != nil {
				return nil, werr
			}
		case errors.Is(err, ErrTransient):
			if attempt == c.maxAttempts-1 {
				break
			}
			delay := backoffDelay(attempt, c.backoffBase, c.backoffMax)
			logging.Debug().
				Str("item_id", itemID).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("Enrichment transient failure, backing off")
			if werr := sleepCtx(ctx, delay); werr != nil {
				return nil, werr
			}
		default:
			metrics.RecordEnrichment("error")
			return nil, err
		}
	}

	metrics.RecordEnrichment("exhausted")
	return nil, fmt.Errorf("enrichment attempts exhausted for item %s: %w", itemID, lastErr)
}

// doItem executes a single item request.
func (c *EnrichmentClient) doItem(ctx context.Context, itemID string) (*models.ItemAttributes, error) {
	reqURL := fmt.Sprintf("%s/v1/items/%s", c.baseURL, itemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+c.token)
	c.mu.Unlock()
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("execute request: %w", ErrTransient)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("item %s: %w", itemID, ErrForbidden)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("item %s: %w", itemID, ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("item %s: status %d: %w", itemID, resp.StatusCode, ErrTransient)
	default:
		return nil, fmt.Errorf("item %s: unexpected status %d", itemID, resp.StatusCode)
	}

	var item itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if item.ItemID == "" {
		item.ItemID = itemID
	}
	return &models.ItemAttributes{
		ItemID:    item.ItemID,
		Name:      item.Name,
		ImageURL:  item.ImageURL,
		Brand:     item.Brand,
		SalesRank: item.SalesRank,
	}, nil
}
