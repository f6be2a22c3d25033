package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linkcut/linkcut/internal/model"
)

// Cache key prefixes and TTLs.
const (
	linkKeyPrefix     = "link:"
	negCacheKeySuffix = ":neg"

	// DefaultLinkTTL is the TTL for cached link data.
	DefaultLinkTTL = 24 * time.Hour

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetLink retrieves a link from cache by code.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetLink(ctx context.Context, code string) (*model.CachedLink, error) {
	key := linkKeyPrefix + code

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	cached := &model.CachedLink{
		TargetURL: result["target_url"],
		OwnerID:   result["owner_id"],
		DeletedAt: result["deleted_at"],
		UpdatedAt: result["updated_at"],
	}

	return cached, nil
}

// SetLink stores a link in cache.
func (c *Cache) SetLink(ctx context.Context, code string, link *model.Link) error {
	key := linkKeyPrefix + code
	cached := link.ToCachedLink()

	fields := map[string]any{
		"target_url": cached.TargetURL,
		"owner_id":   cached.OwnerID,
		"updated_at": cached.UpdatedAt,
	}

	// Only set optional fields if they have values
	if cached.DeletedAt != "" {
		fields["deleted_at"] = cached.DeletedAt
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, DefaultLinkTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to cache link: %w", err)
	}

	// Remove negative cache if exists
	c.client.Del(ctx, key+negCacheKeySuffix)

	return nil
}

// DeleteLink removes a link from cache. Mutations call this before the
// database write is acknowledged, so a stale positive entry cannot
// outlive an update or delete.
func (c *Cache) DeleteLink(ctx context.Context, code string) error {
	key := linkKeyPrefix + code

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, key+negCacheKeySuffix)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete link from cache: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a code is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, code string) (bool, error) {
	key := linkKeyPrefix + code + negCacheKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a code as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, code string) error {
	key := linkKeyPrefix + code + negCacheKeySuffix

	err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}
