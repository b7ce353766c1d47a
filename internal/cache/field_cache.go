package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/matter-service/internal/domain"
)

const (
	// FieldKeyPrefix is the Redis key prefix for cached field definitions.
	FieldKeyPrefix = "matters:field:"
	// DefaultFieldTTL applies when no TTL is configured.
	DefaultFieldTTL = 5 * time.Minute
)

// FieldCache stores field definitions as JSON in Redis.
type FieldCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewFieldCache creates a field cache.
func NewFieldCache(client *redis.Client, ttl time.Duration) *FieldCache {
	if ttl <= 0 {
		ttl = DefaultFieldTTL
	}
	return &FieldCache{client: client, prefix: FieldKeyPrefix, ttl: ttl}
}

// Get returns the cached definition, or nil without error on a miss.
func (c *FieldCache) Get(ctx context.Context, key string) (*domain.FieldDefinition, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached field %s: %w", key, err)
	}

	var def domain.FieldDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decode cached field %s: %w", key, err)
	}
	return &def, nil
}

// Set caches def under key for the configured TTL.
func (c *FieldCache) Set(ctx context.Context, key string, def *domain.FieldDefinition) error {
	if def == nil {
		return errors.New("field definition cannot be nil")
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode field %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache field %s: %w", key, err)
	}
	return nil
}

// Delete drops a cached definition.
func (c *FieldCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
