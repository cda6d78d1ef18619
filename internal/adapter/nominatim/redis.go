package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-alerts/internal/domain"
	"github.com/couchcryptid/hazard-alerts/internal/observability"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "hazard-alerts:geocode:"

// RedisCache shares geocoding results across service instances. Redis
// failures are logged and fall through to the wrapped geocoder.
type RedisCache struct {
	inner   domain.Geocoder
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// NewRedisCache creates a Redis-backed cache decorator around a geocoder.
func NewRedisCache(inner domain.Geocoder, client *redis.Client, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func (c *RedisCache) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	key := redisKeyPrefix + cacheKey(lat, lon)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var result domain.GeocodingResult
		if jsonErr := json.Unmarshal(data, &result); jsonErr == nil {
			c.metrics.GeocodeCache.WithLabelValues("redis", "hit").Inc()
			return result, nil
		}
		c.logger.Warn("discarding corrupt geocode cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("redis get failed", "key", key, "error", err)
	}
	c.metrics.GeocodeCache.WithLabelValues("redis", "miss").Inc()

	result, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil || result.Label == "" {
		return result, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("redis set failed", "key", key, "error", err)
		}
	}
	return result, nil
}

