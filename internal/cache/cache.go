package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pimsync/internal/logger"
)

const (
	hashKeyPrefix = "pimsync:product_hash:"
	hashTTL       = 7 * 24 * time.Hour
)

// HashCache stores per-product content hashes in Redis so unchanged
// products can be skipped without touching the storefront API. A cache
// miss or Redis outage degrades to a full sync, never to an error.
type HashCache struct {
	client *redis.Client
	logger *logger.Logger
}

func NewHashCache(redisURL string, logger *logger.Logger) (*HashCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &HashCache{
		client: redis.NewClient(opts),
		logger: logger,
	}, nil
}

// GetProductHash returns the stored hash for a product, or empty string
// when none is cached or Redis is unavailable.
func (c *HashCache) GetProductHash(ctx context.Context, productID string) string {
	value, err := c.client.Get(ctx, hashKeyPrefix+productID).Result()
	if err == redis.Nil {
		return ""
	}
	if err != nil {
		c.logger.Warn("Failed to read hash for %s: %v", productID, err)
		return ""
	}
	return value
}

// SetProductHash stores the product's content hash with a TTL.
func (c *HashCache) SetProductHash(ctx context.Context, productID, hash string) {
	if err := c.client.Set(ctx, hashKeyPrefix+productID, hash, hashTTL).Err(); err != nil {
		c.logger.Warn("Failed to cache hash for %s: %v", productID, err)
	}
}

// InvalidateProduct removes the cached hash, forcing a full diff on the
// next pass.
func (c *HashCache) InvalidateProduct(ctx context.Context, productID string) {
	if err := c.client.Del(ctx, hashKeyPrefix+productID).Err(); err != nil {
		c.logger.Warn("Failed to invalidate hash for %s: %v", productID, err)
	}
}

// InvalidateAll drops every cached product hash. Called when the mapping
// configuration changes, since digests computed under the old field set no
// longer predict the destination writes.
func (c *HashCache) InvalidateAll(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, hashKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("Failed to invalidate hash %s: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Failed to scan hash keys: %v", err)
	}
}

func (c *HashCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *HashCache) Close() error {
	return c.client.Close()
}
