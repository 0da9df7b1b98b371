package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const listCacheKey = "catalog:products:active"

// ProductCache is a cache-aside layer over the public product listing.
// A nil cache is valid and disables caching.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProductCache constructs ProductCache.
func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ProductCache{client: client, ttl: ttl}
}

// Get returns the cached listing and whether it was present.
func (c *ProductCache) Get(ctx context.Context) ([]Product, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, listCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, false
	}
	return products, true
}

// Set stores the listing. Failures are ignored: the cache is best effort.
func (c *ProductCache) Set(ctx context.Context, products []Product) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, listCacheKey, raw, c.ttl).Err()
}

// Invalidate drops the cached listing after any catalog write.
func (c *ProductCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, listCacheKey).Err()
}
