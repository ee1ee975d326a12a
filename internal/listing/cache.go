package listing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	platformredis "carteret/internal/platform/redis"
)

const (
	cacheTTL        = 5 * time.Minute
	cacheVersionKey = "listings:ver"
)

// Cache keeps browse results in Redis. Invalidation bumps a version counter
// instead of scanning for keys, so stale entries simply age out under the
// TTL. A nil client disables caching entirely.
type Cache struct {
	client *platformredis.Client
	logger *slog.Logger
}

func NewCache(client *platformredis.Client, logger *slog.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) key(ctx context.Context, city, query string) (string, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err != nil {
		ver = 0
	}
	sum := sha256.Sum256([]byte(city + "\x00" + query))
	return fmt.Sprintf("listings:browse:%d:%s", ver, hex.EncodeToString(sum[:8])), nil
}

// Get returns cached browse results, or nil on miss or any Redis trouble.
func (c *Cache) Get(ctx context.Context, city, query string) []*Listing {
	if !c.enabled() {
		return nil
	}
	key, err := c.key(ctx, city, query)
	if err != nil {
		return nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var listings []*Listing
	if err := json.Unmarshal(raw, &listings); err != nil {
		c.logger.Warn("failed to decode cached listings", "error", err)
		return nil
	}
	return listings
}

// Set stores browse results. Failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, city, query string, listings []*Listing) {
	if !c.enabled() {
		return
	}
	key, err := c.key(ctx, city, query)
	if err != nil {
		return
	}
	raw, err := json.Marshal(listings)
	if err != nil {
		c.logger.Warn("failed to encode listings for cache", "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
		c.logger.Warn("failed to cache listings", "error", err)
	}
}

// Invalidate bumps the version so every cached browse result goes stale.
func (c *Cache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.client.Incr(ctx, cacheVersionKey).Err(); err != nil {
		c.logger.Warn("failed to invalidate listing cache", "error", err)
	}
}
