package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "cbapi:"

var (
	cacheHits   = metrics.NewCounter(`metadata_cache_requests_total{result="hit"}`)
	cacheMisses = metrics.NewCounter(`metadata_cache_requests_total{result="miss"}`)
	cacheErrors = metrics.NewCounter(`metadata_cache_requests_total{result="error"}`)
)

// NewRedisClient connects to addr and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// RedisDocumentCache keeps rendered documents in Redis for a fixed TTL.
type RedisDocumentCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewRedisDocumentCache(client *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *RedisDocumentCache {
	return &RedisDocumentCache{client: client, ttl: ttl, logger: logger.Named("RedisDocumentCache")}
}

// Get returns the cached value and whether it was present.
func (c *RedisDocumentCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			cacheMisses.Inc()
			c.logger.Debugw("Redis GET miss", "key", key)
			return nil, false, nil
		}
		cacheErrors.Inc()
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	cacheHits.Inc()
	return data, true, nil
}

func (c *RedisDocumentCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, keyPrefix+key, value, c.ttl).Err(); err != nil {
		cacheErrors.Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	c.logger.Debugw("Redis SET completed", "key", key, "ttl", c.ttl)
	return nil
}
