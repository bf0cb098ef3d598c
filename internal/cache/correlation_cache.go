package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/health-correlation-server/internal/database"
)

// CorrelationCache keeps the latest stored correlation per (user, pair) in
// Redis so the read path does not hit the database on every query. Entries
// expire on their own and are invalidated after each recomputation.
type CorrelationCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// New creates a correlation cache with the given entry TTL.
func New(redisClient *redis.Client, ttl time.Duration) *CorrelationCache {
	return &CorrelationCache{redis: redisClient, ttl: ttl}
}

func cacheKey(userID int64, typeA, typeB string) string {
	first, second := database.CanonicalPair(typeA, typeB)
	return fmt.Sprintf("correlation:%d:%s:%s", userID, first, second)
}

// Get retrieves a cached correlation. Returns (nil, nil) on a miss.
func (c *CorrelationCache) Get(ctx context.Context, userID int64, typeA, typeB string) (*database.CorrelationRecord, error) {
	data, err := c.redis.Get(ctx, cacheKey(userID, typeA, typeB)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get correlation from Redis: %w", err)
	}

	var rec database.CorrelationRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached correlation: %w", err)
	}

	return &rec, nil
}

// Set caches a correlation record.
func (c *CorrelationCache) Set(ctx context.Context, rec *database.CorrelationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal correlation: %w", err)
	}

	key := cacheKey(rec.UserID, rec.XDataType, rec.YDataType)
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set correlation in Redis: %w", err)
	}

	return nil
}

// Invalidate drops the cached entry for a (user, pair) key. Called after a
// recomputation persists a fresh value.
func (c *CorrelationCache) Invalidate(ctx context.Context, userID int64, typeA, typeB string) error {
	return c.redis.Del(ctx, cacheKey(userID, typeA, typeB)).Err()
}
