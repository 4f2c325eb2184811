package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"insurance-notifications/internal/common/logger"
	"insurance-notifications/internal/models"

	"github.com/redis/go-redis/v9"
)

// ProviderSource is the uncached provider lookup.
type ProviderSource interface {
	FindProvider(ctx context.Context, id int64) (*models.Provider, error)
}

// ProviderCache is a read-through redis cache in front of a ProviderSource.
// Redis failures fall back to the source. Missing providers are not cached.
type ProviderCache struct {
	redis  *redis.Client
	source ProviderSource
	ttl    time.Duration
	logger logger.Logger
}

func NewProviderCache(client *redis.Client, source ProviderSource, ttl time.Duration, log logger.Logger) *ProviderCache {
	return &ProviderCache{
		redis:  client,
		source: source,
		ttl:    ttl,
		logger: log,
	}
}

func providerKey(id int64) string {
	return fmt.Sprintf("provider:%d", id)
}

func (c *ProviderCache) FindProvider(ctx context.Context, id int64) (*models.Provider, error) {
	key := providerKey(id)

	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p models.Provider
		if jsonErr := json.Unmarshal(cached, &p); jsonErr == nil {
			return &p, nil
		}
		c.logger.Warn("Discarding undecodable provider cache entry", map[string]interface{}{
			"key": key,
		})
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Provider cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	provider, err := c.source.FindProvider(ctx, id)
	if err != nil || provider == nil {
		return provider, err
	}

	if data, err := json.Marshal(provider); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Provider cache write failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	return provider, nil
}

// Invalidate drops the cached entry for id.
func (c *ProviderCache) Invalidate(ctx context.Context, id int64) error {
	return c.redis.Del(ctx, providerKey(id)).Err()
}
