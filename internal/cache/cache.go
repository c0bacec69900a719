package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"collectorhub/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Cache is a JSON cache-aside layer over Redis. A nil client or a nil *Cache
// disables caching and every load goes straight to the source.
type Cache struct {
	client *redis.Client
}

// New wraps client, which may be nil.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Enabled reports whether a Redis client is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Aside fills dest from key when present, otherwise runs load (which must
// populate dest) and stores the result for ttl. Redis failures degrade to a
// direct load.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	if !c.Enabled() {
		return load()
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
		c.Invalidate(ctx, key)
	case !errors.Is(err, redis.Nil):
		middleware.Logger.WarnContext(ctx, "cache read failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}

	if err := load(); err != nil {
		return err
	}

	encoded, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := c.client.Set(ctx, key, encoded, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate drops keys; failures are logged only.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidate failed",
			slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

// InvalidateMemberships drops the cached membership set of a user.
func (c *Cache) InvalidateMemberships(ctx context.Context, userID uint) {
	c.Invalidate(ctx, MembershipKey(userID))
}
