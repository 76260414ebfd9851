package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const subscriptionCachePrefix = "billing:current_subscription:"

// RedisCache caches current subscriptions in Redis with a TTL. Entries are
// JSON-encoded; the hydrated Plan (with features) travels with the
// subscription so entitlement checks stay off the database.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed Cache. A non-positive ttl falls back
// to five minutes, which keeps entitlement checks cheap while bounding
// staleness after out-of-band catalog changes.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if client == nil {
		panic("billing: redis client is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, userID uuid.UUID) (*Subscription, bool) {
	raw, err := c.client.Get(ctx, subscriptionCachePrefix+userID.String()).Bytes()
	if err != nil {
		// Treat redis.Nil and transport errors alike: a cache miss.
		return nil, false
	}

	var sub Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		_ = c.Delete(ctx, userID)
		return nil, false
	}
	return &sub, true
}

func (c *RedisCache) Set(ctx context.Context, userID uuid.UUID, sub *Subscription) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return errors.Join(ErrFailedToCacheEntry, err)
	}
	if err := c.client.Set(ctx, subscriptionCachePrefix+userID.String(), raw, c.ttl).Err(); err != nil {
		return errors.Join(ErrFailedToCacheEntry, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, subscriptionCachePrefix+userID.String()).Err()
}
