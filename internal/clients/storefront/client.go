package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"pimsync/internal/clients"
	"pimsync/internal/config"
	"pimsync/internal/logger"
	"pimsync/internal/models"
)

// Client talks to the storefront CMS e-commerce API: parent product items,
// child SKU items, collections and batch publishing.
type Client struct {
	baseURL    string
	token      string
	siteID     string
	httpClient *http.Client
	limiter    *clients.RateLimiter
	retries    int
	logger     *logger.Logger
}

func NewClient(cfg *config.Config, logger *logger.Logger) *Client {
	return &Client{
		baseURL: cfg.StorefrontBaseURL,
		token:   cfg.StorefrontToken,
		siteID:  cfg.StorefrontSiteID,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		limiter: clients.NewRateLimiter(cfg.StorefrontRateLimit, time.Minute),
		retries: cfg.RetryAttempts,
		logger:  logger,
	}
}

// FindByBusinessKey looks up an existing product item by the configured
// business key (SKU or slug). Returns empty item ID when no match exists.
func (c *Client) FindByBusinessKey(ctx context.Context, key string) (string, error) {
	path := fmt.Sprintf("/sites/%s/products?sku=%s", c.siteID, url.QueryEscape(key))
	var resp struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to look up product by key %s: %w", key, err)
	}
	if len(resp.Items) == 0 {
		return "", nil
	}
	return resp.Items[0].ID, nil
}

// ReadCurrentFields returns the parent item's current field data and its
// live SKU items keyed by SKU code, for field-level diffing before write.
func (c *Client) ReadCurrentFields(ctx context.Context, itemID string) (map[string]interface{}, map[string]map[string]interface{}, error) {
	path := fmt.Sprintf("/sites/%s/products/%s", c.siteID, itemID)
	var resp struct {
		Product struct {
			FieldData map[string]interface{} `json:"fieldData"`
		} `json:"product"`
		SKUs []struct {
			ID        string                 `json:"id"`
			FieldData map[string]interface{} `json:"fieldData"`
		} `json:"skus"`
	}
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, nil, fmt.Errorf("failed to read product %s: %w", itemID, err)
	}

	skus := make(map[string]map[string]interface{}, len(resp.SKUs))
	for _, sku := range resp.SKUs {
		code, _ := sku.FieldData["sku"].(string)
		if code == "" {
			continue
		}
		fields := sku.FieldData
		fields["_itemId"] = sku.ID
		skus[code] = fields
	}
	return resp.Product.FieldData, skus, nil
}

// WriteParentFields patches only the supplied fields on the parent item.
func (c *Client) WriteParentFields(ctx context.Context, itemID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	path := fmt.Sprintf("/sites/%s/products/%s", c.siteID, itemID)
	payload := map[string]interface{}{
		"product": map[string]interface{}{"fieldData": fields},
	}
	if err := c.request(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return fmt.Errorf("failed to update product %s: %w", itemID, err)
	}
	return nil
}

// WriteChildFields patches a single SKU item under its parent product.
func (c *Client) WriteChildFields(ctx context.Context, productID, skuID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	path := fmt.Sprintf("/sites/%s/products/%s/skus/%s", c.siteID, productID, skuID)
	payload := map[string]interface{}{
		"sku": map[string]interface{}{"fieldData": fields},
	}
	if err := c.request(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return fmt.Errorf("failed to update sku %s: %w", skuID, err)
	}
	return nil
}

// CreateParent creates a product item with its default SKU and returns the
// new item ID plus the default SKU item ID.
func (c *Client) CreateParent(ctx context.Context, collectionID string, product *models.DestinationProduct, defaultSKU *models.DestinationSKU) (string, string, error) {
	fieldData := map[string]interface{}{
		"name": product.Name,
		"slug": product.Slug,
	}
	for k, v := range product.Fields {
		fieldData[k] = v
	}
	if len(product.Properties) > 0 {
		fieldData["sku-properties"] = skuPropertyPayload(product.Properties)
	}
	if collectionID != "" {
		fieldData["category"] = []string{collectionID}
	}

	payload := map[string]interface{}{
		"publishStatus": "staging",
		"product": map[string]interface{}{
			"fieldData": fieldData,
		},
		"sku": map[string]interface{}{
			"fieldData": skuFieldData(defaultSKU),
		},
	}

	path := fmt.Sprintf("/sites/%s/products", c.siteID)
	var resp struct {
		Product struct {
			ID string `json:"id"`
		} `json:"product"`
		DefaultSKU struct {
			ID string `json:"id"`
		} `json:"defaultSku"`
	}
	if err := c.request(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return "", "", fmt.Errorf("failed to create product %s: %w", product.Slug, err)
	}
	return resp.Product.ID, resp.DefaultSKU.ID, nil
}

// CreateChild creates an additional SKU item under an existing product and
// returns its item ID.
func (c *Client) CreateChild(ctx context.Context, productID string, sku *models.DestinationSKU) (string, error) {
	payload := map[string]interface{}{
		"skus": []map[string]interface{}{
			{"fieldData": skuFieldData(sku)},
		},
	}
	path := fmt.Sprintf("/sites/%s/products/%s/skus", c.siteID, productID)
	var resp struct {
		SKUs []struct {
			ID string `json:"id"`
		} `json:"skus"`
	}
	if err := c.request(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return "", fmt.Errorf("failed to create sku %s: %w", sku.SKU, err)
	}
	if len(resp.SKUs) == 0 {
		return "", fmt.Errorf("create sku %s returned no items", sku.SKU)
	}
	return resp.SKUs[0].ID, nil
}

// PublishBatch publishes a batch of item IDs to the live site.
func (c *Client) PublishBatch(ctx context.Context, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	payload := map[string]interface{}{"itemIds": itemIDs}
	path := fmt.Sprintf("/sites/%s/publish", c.siteID)
	if err := c.request(ctx, http.MethodPost, path, payload, nil); err != nil {
		return fmt.Errorf("failed to publish batch of %d items: %w", len(itemIDs), err)
	}
	c.logger.Info("Published %d items", len(itemIDs))
	return nil
}

// ListCollections returns the CMS collections on the site, keyed by name.
func (c *Client) ListCollections(ctx context.Context) (map[string]string, error) {
	path := fmt.Sprintf("/sites/%s/collections", c.siteID)
	var resp struct {
		Collections []struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
		} `json:"collections"`
	}
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	collections := make(map[string]string, len(resp.Collections))
	for _, collection := range resp.Collections {
		collections[collection.DisplayName] = collection.ID
	}
	return collections, nil
}

// CreateCollection creates a CMS collection and returns its ID.
func (c *Client) CreateCollection(ctx context.Context, name, slug string) (string, error) {
	payload := map[string]interface{}{
		"displayName":  name,
		"singularName": name,
		"slug":         slug,
	}
	path := fmt.Sprintf("/sites/%s/collections", c.siteID)
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.request(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return "", fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return resp.ID, nil
}

func skuFieldData(sku *models.DestinationSKU) map[string]interface{} {
	fields := map[string]interface{}{
		"name":  sku.SKU,
		"slug":  sku.SKU,
		"sku":   sku.SKU,
		"price": map[string]interface{}{"value": sku.Price.Value, "unit": sku.Price.Unit},
	}
	if len(sku.Values) > 0 {
		fields["sku-values"] = sku.Values
	}
	for k, v := range sku.Fields {
		fields[k] = v
	}
	return fields
}

func skuPropertyPayload(properties []models.SKUProperty) []map[string]interface{} {
	payload := make([]map[string]interface{}, 0, len(properties))
	for _, prop := range properties {
		values := make([]map[string]string, 0, len(prop.Values))
		for _, value := range prop.Values {
			values = append(values, map[string]string{"name": value, "slug": value})
		}
		payload = append(payload, map[string]interface{}{
			"name": prop.Name,
			"enum": values,
		})
	}
	return payload
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

		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return &clients.AuthError{Service: "storefront", Reason: err.Error()}
		}
		if !clients.Retryable(status) {
			return err
		}
		c.logger.Warn("Storefront request %s %s failed (attempt %d/%d): %v", method, path, attempt+1, c.retries+1, err)
	}

	if apiErr, ok := lastErr.(*clients.APIError); ok && apiErr.StatusCode == http.StatusTooManyRequests {
		return &clients.RateLimitError{Service: "storefront", RetryAfter: time.Minute}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) (int, error) {
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
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, &clients.APIError{Service: "storefront", StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
