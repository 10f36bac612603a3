package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"scrap/internal/domain"
	"scrap/internal/repository"
)

// DefaultPricingCacheTTL bounds how stale a cached catalog price may be.
const DefaultPricingCacheTTL = 60 * time.Second

// Key prefixes
const (
	pricingCachePrefix = "cache:pricing:"
	pricingListKey     = "cache:pricing:all"
)

// PricingCache is a read-through cache in front of a PricingCatalog.
// Redis failures fall back to the catalog.
type PricingCache struct {
	client  redis.Cmdable
	catalog repository.PricingCatalog
	ttl     time.Duration
}

// NewPricingCache creates a new PricingCache.
func NewPricingCache(client redis.Cmdable, catalog repository.PricingCatalog, ttl time.Duration) *PricingCache {
	if ttl <= 0 {
		ttl = DefaultPricingCacheTTL
	}
	return &PricingCache{client: client, catalog: catalog, ttl: ttl}
}

// Lookup returns the snapshot for category from cache, loading it on a miss.
func (c *PricingCache) Lookup(ctx context.Context, category domain.WasteCategory) (*domain.PricingSnapshot, error) {
	key := pricingCachePrefix + string(category)

	var cached domain.PricingSnapshot
	if hit, err := c.get(ctx, key, &cached); err != nil {
		log.Printf("[CACHE] pricing lookup %s: %v", category, err)
	} else if hit {
		return &cached, nil
	}

	snapshot, err := c.catalog.Lookup(ctx, category)
	if err != nil {
		return nil, err
	}

	c.set(ctx, key, snapshot)
	return snapshot, nil
}

// List returns the full catalog from cache, loading it on a miss.
func (c *PricingCache) List(ctx context.Context) ([]*domain.PricingSnapshot, error) {
	var cached []*domain.PricingSnapshot
	if hit, err := c.get(ctx, pricingListKey, &cached); err != nil {
		log.Printf("[CACHE] pricing list: %v", err)
	} else if hit {
		return cached, nil
	}

	snapshots, err := c.catalog.List(ctx)
	if err != nil {
		return nil, err
	}

	c.set(ctx, pricingListKey, snapshots)
	return snapshots, nil
}

// Invalidate drops every cached price. The admin collaborator calls this
// after editing the catalog.
func (c *PricingCache) Invalidate(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, pricingCachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *PricingCache) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // Cache miss
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *PricingCache) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("[CACHE] store %s: %v", key, err)
	}
}
