package cache

import (
	"context"
	"fmt"
	"time"
)

// Negative-cache keys shield the database from repeated lookups of short ids
// that do not exist. Hits and visit counting stay in PostgreSQL, where the
// increment is atomic.
const (
	negCacheKeyPrefix = "link:neg:"

	// NegativeCacheTTL is the TTL for negative cache entries. A short TTL
	// bounds the window in which a freshly created short id can appear missing.
	NegativeCacheTTL = 1 * time.Minute
)

// NegativeCacheKey builds the Redis key marking a short id as not found.
func NegativeCacheKey(shortID string) string {
	return negCacheKeyPrefix + shortID
}

// IsNegativelyCached checks whether a short id is marked as not found.
func (c *Cache) IsNegativelyCached(ctx context.Context, shortID string) (bool, error) {
	exists, err := c.client.Exists(ctx, NegativeCacheKey(shortID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}
	return exists > 0, nil
}

// SetNegativeCache marks a short id as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, shortID string) error {
	err := c.client.SetEx(ctx, NegativeCacheKey(shortID), "", NegativeCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}
	return nil
}

// ClearNegativeCache removes a not-found marker, called after a link with the
// given short id is created.
func (c *Cache) ClearNegativeCache(ctx context.Context, shortID string) error {
	if err := c.client.Del(ctx, NegativeCacheKey(shortID)).Err(); err != nil {
		return fmt.Errorf("failed to clear negative cache: %w", err)
	}
	return nil
}
