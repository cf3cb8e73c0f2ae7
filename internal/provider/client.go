// Package provider fetches raw metric payloads from the upstream
// open source metrics provider over HTTP.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"oss-insights-mcp/internal/config"
	"oss-insights-mcp/internal/logging"
	"oss-insights-mcp/internal/ratelimit"
	"oss-insights-mcp/internal/retry"
)

// RetrieveFunc matches the cache loader signature so a client fetch can
// be handed straight to the cache.
type RetrieveFunc func(ctx context.Context) (interface{}, error)

// Client talks to the metrics provider with retry and rate limiting.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	retrier    *retry.Retrier
	limiter    ratelimit.Limiter
	logger     logging.Logger
}

// NewClient creates a provider client from configuration.
func NewClient(cfg *config.ProviderConfig, limiter ratelimit.Limiter, logger logging.Logger) *Client {
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		retrier: retry.New(retry.ExponentialBackoff(cfg.RetryAttempts)),
		limiter: limiter,
		logger:  logger.WithComponent("provider"),
	}
}

// MetricURL builds the provider URL for a single metric file.
func (c *Client) MetricURL(platform, owner, repo, metric string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s.json",
		c.baseURL,
		url.PathEscape(platform),
		url.PathEscape(owner),
		url.PathEscape(repo),
		url.PathEscape(metric),
	)
}

// FetchMetric retrieves one metric payload, honoring the rate limit and
// retrying transient failures.
func (c *Client) FetchMetric(ctx context.Context, platform, owner, repo, metric string) (interface{}, error) {
	key := fmt.Sprintf("%s/%s/%s/%s", platform, owner, repo, metric)
	start := time.Now()

	decision, err := c.limiter.Allow(ctx, "provider")
	if err != nil {
		// A broken limiter should not take the provider down with it.
		c.logger.WarnContext(ctx, "rate limiter check failed, allowing request", "error", err.Error())
	} else if !decision.Allowed {
		return nil, &retry.PermanentError{
			Err: fmt.Errorf("rate limit exceeded for %s, retry after %s", key, decision.RetryAfter),
		}
	}

	var payload interface{}
	result := c.retrier.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		payload, fetchErr = c.fetchOnce(ctx, platform, owner, repo, metric)
		return fetchErr
	})
	if result.Err != nil {
		c.logger.WarnContext(ctx, "metric fetch failed",
			"key", key,
			"attempts", result.Attempts,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", result.Err.Error(),
		)
		return nil, fmt.Errorf("fetching %s (after %s): %w", key, time.Since(start).Round(time.Millisecond), result.Err)
	}

	c.logger.DebugContext(ctx, "metric fetched",
		"key", key,
		"attempts", result.Attempts,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return payload, nil
}

func (c *Client) fetchOnce(ctx context.Context, platform, owner, repo, metric string) (interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.MetricURL(platform, owner, repo, metric), nil)
	if err != nil {
		return nil, &retry.PermanentError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &retry.TemporaryError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &retry.TemporaryError{Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp.StatusCode, platform, owner, repo, metric)
	}

	// Payload shapes vary per metric, so decode into a generic value.
	// Numbers stay as json.Number to avoid float precision loss.
	decoder := json.NewDecoder(strings.NewReader(string(body)))
	decoder.UseNumber()
	var payload interface{}
	if err := decoder.Decode(&payload); err != nil {
		// Some provider endpoints serve plain text for sparse metrics.
		trimmed := strings.TrimSpace(string(body))
		if trimmed != "" {
			return trimmed, nil
		}
		return nil, &retry.PermanentError{Err: fmt.Errorf("decoding response: %w", err)}
	}
	return payload, nil
}

func classifyStatus(status int, platform, owner, repo, metric string) error {
	switch {
	case status == http.StatusNotFound:
		return &retry.PermanentError{
			Err: fmt.Errorf("metric %s not found for %s/%s/%s (HTTP 404)", metric, platform, owner, repo),
		}
	case status == http.StatusTooManyRequests:
		return &retry.TemporaryError{
			Err: fmt.Errorf("provider rate limit hit (HTTP 429)"),
		}
	case status >= 500:
		return &retry.TemporaryError{
			Err: fmt.Errorf("provider error (HTTP %d)", status),
		}
	default:
		return &retry.PermanentError{
			Err: fmt.Errorf("unexpected provider response (HTTP %d)", status),
		}
	}
}

// Retriever returns a loader bound to one metric, for use with the cache.
func (c *Client) Retriever(platform, owner, repo, metric string) RetrieveFunc {
	return func(ctx context.Context) (interface{}, error) {
		return c.FetchMetric(ctx, platform, owner, repo, metric)
	}
}
