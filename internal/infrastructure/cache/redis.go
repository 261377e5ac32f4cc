package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/config"
	"github.com/bimakw/tokendata/internal/domain/entities"
	"github.com/bimakw/tokendata/internal/domain/repositories"
)

// KeyPrefix namespaces every key written by the metadata cache
const KeyPrefix = "tokendata:meta"

// ErrCacheMiss indicates the key was not found in cache
var ErrCacheMiss = repositories.ErrCacheMiss

// RedisCache stores resolved on-chain name/ticker pairs in Redis
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(cfg config.RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
	)

	return NewRedisCacheWithClient(client, cfg.TTL, logger), nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Key returns the cache key for a token
func Key(chainID int64, address string) string {
	return fmt.Sprintf("%s:%d:%s", KeyPrefix, chainID, address)
}

// Get retrieves a cached name/ticker pair
func (c *RedisCache) Get(ctx context.Context, chainID int64, address string) (entities.NameTicker, error) {
	var v entities.NameTicker

	val, err := c.client.Get(ctx, Key(chainID, address)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return v, ErrCacheMiss
		}
		return v, fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal([]byte(val), &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return v, nil
}

// Set stores a name/ticker pair with the configured TTL
func (c *RedisCache) Set(ctx context.Context, chainID int64, address string, value entities.NameTicker) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := c.client.Set(ctx, Key(chainID, address), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// DeleteChain removes every cached entry for a chain
func (c *RedisCache) DeleteChain(ctx context.Context, chainID int64) (int, error) {
	pattern := fmt.Sprintf("%s:%d:*", KeyPrefix, chainID)

	deleted := 0
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("Failed to delete cache key",
				zap.String("key", iter.Val()),
				zap.Error(err),
			)
			continue
		}
		deleted++
	}
	return deleted, iter.Err()
}

// HealthCheck checks if Redis is reachable
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
