package pim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"pimsync/internal/clients"
	"pimsync/internal/config"
	"pimsync/internal/logger"
	"pimsync/internal/models"
)

// Client talks to the PIM source system. It exchanges the API key for a
// bearer token, refreshes the token on expiry, rate-limits itself and
// retries transient failures with exponential backoff.
type Client struct {
	baseURL    string
	apiKey     string
	password   string
	httpClient *http.Client
	limiter    *clients.RateLimiter
	retries    int
	logger     *logger.Logger

	mu    sync.Mutex
	token string
}

func NewClient(cfg *config.Config, logger *logger.Logger) *Client {
	return &Client{
		baseURL:  cfg.PIMBaseURL,
		apiKey:   cfg.PIMAPIKey,
		password: cfg.PIMPassword,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		limiter: clients.NewRateLimiter(cfg.PIMRateLimit, 10*time.Second),
		retries: cfg.RetryAttempts,
		logger:  logger,
	}
}

// FetchPage returns one page of products, optionally filtered to entities
// modified after since, plus whether more pages remain.
func (c *Client) FetchPage(ctx context.Context, page, pageSize int, since *time.Time) ([]models.SourceProduct, bool, error) {
	payload := map[string]interface{}{
		"pagination": map[string]int{
			"page":      page,
			"page_size": pageSize,
		},
	}
	if since != nil {
		payload["filters"] = [][]map[string]string{{{
			"field":    "modified",
			"operator": "gt",
			"value":    since.Format("2006-01-02"),
		}}}
	}

	var resp struct {
		Data       []productRecord `json:"data"`
		Pagination struct {
			TotalCount int `json:"total_count"`
		} `json:"pagination"`
	}
	if err := c.request(ctx, http.MethodPost, "/products/search", payload, &resp); err != nil {
		return nil, false, fmt.Errorf("failed to fetch product page %d: %w", page, err)
	}

	products := make([]models.SourceProduct, 0, len(resp.Data))
	for _, record := range resp.Data {
		products = append(products, record.toProduct())
	}
	hasMore := len(resp.Data) == pageSize
	return products, hasMore, nil
}

// FetchVariants returns the variant children of a product.
func (c *Client) FetchVariants(ctx context.Context, productID string) ([]models.SourceVariant, error) {
	var resp struct {
		Data []variantRecord `json:"data"`
	}
	path := fmt.Sprintf("/products/%s/variants", productID)
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch variants for %s: %w", productID, err)
	}

	variants := make([]models.SourceVariant, 0, len(resp.Data))
	for _, record := range resp.Data {
		variants = append(variants, record.toVariant())
	}
	return variants, nil
}

// FetchDetails returns the raw nested attribute bag for a product. The
// attribute extractor consumes this verbatim.
func (c *Client) FetchDetails(ctx context.Context, productID string) (map[string]interface{}, error) {
	var resp struct {
		Data []map[string]interface{} `json:"data"`
	}
	path := fmt.Sprintf("/products/%s?attributes=all", productID)
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch details for %s: %w", productID, err)
	}
	if len(resp.Data) == 0 {
		return map[string]interface{}{}, nil
	}
	return resp.Data[0], nil
}

func (c *Client) request(ctx context.Context, method, path string, payload, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		status, err := c.do(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if clients.IsAuthError(err) {
			return err
		}
		if status == http.StatusUnauthorized {
			// Token expired mid-pass; refresh once and retry.
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			continue
		}
		if !clients.Retryable(status) {
			return err
		}
		c.logger.Warn("PIM request %s %s failed (attempt %d/%d): %v", method, path, attempt+1, c.retries+1, err)
	}

	if apiErr, ok := lastErr.(*clients.APIError); ok && apiErr.StatusCode == http.StatusTooManyRequests {
		return &clients.RateLimitError{Service: "pim", RetryAfter: 10 * time.Second}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) (int, error) {
	token, err := c.authToken(ctx)
	if err != nil {
		return 0, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, &clients.APIError{Service: "pim", StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// authToken returns the cached bearer token, exchanging API credentials for
// a fresh one when none is held.
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"api_key":      c.apiKey,
		"api_password": c.password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/api/auth-key", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to authenticate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", &clients.AuthError{Service: "pim", Reason: fmt.Sprintf("%d - %s", resp.StatusCode, string(data))}
	}

	var authResp struct {
		Data []struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}
	if len(authResp.Data) == 0 || authResp.Data[0].AccessToken == "" {
		return "", &clients.AuthError{Service: "pim", Reason: "empty token response"}
	}

	c.token = authResp.Data[0].AccessToken
	return c.token, nil
}
