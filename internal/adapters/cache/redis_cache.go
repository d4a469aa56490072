package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/core"
)

// redisEntry is the stored form of a result
type redisEntry struct {
	IsSpam           bool               `json:"is_spam"`
	Score            float64            `json:"score"`
	DetectedPatterns []string           `json:"detected_patterns"`
	ModelPredictions map[string]float64 `json:"model_predictions"`
	Explanation      string             `json:"explanation"`
	AnalyzedAt       time.Time          `json:"analyzed_at"`
}

// RedisCache is a Redis implementation of the PredictionCache interface.
// Expiry is delegated to Redis key TTLs.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisCache creates a new Redis cache from a redis:// URL
func NewRedisCache(ctx context.Context, redisURL, keyPrefix string, logger *zap.Logger) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheWithClient(client, keyPrefix, logger), nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, keyPrefix: keyPrefix, logger: logger}
}

func (c *RedisCache) key(k string) string {
	return c.keyPrefix + ":" + k
}

// Get retrieves a cached result. Redis errors are logged and treated as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*core.PredictionResult, bool) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error("Failed to query cache", zap.Error(err), zap.String("key", key))
		}
		return nil, false
	}

	var entry redisEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Error("Failed to decode cache entry", zap.Error(err), zap.String("key", key))
		return nil, false
	}

	return &core.PredictionResult{
		IsSpam:           entry.IsSpam,
		Score:            entry.Score,
		DetectedPatterns: entry.DetectedPatterns,
		ModelPredictions: entry.ModelPredictions,
		Explanation:      entry.Explanation,
		AnalyzedAt:       entry.AnalyzedAt,
	}, true
}

// Set stores a result with a Redis TTL
func (c *RedisCache) Set(ctx context.Context, key string, result *core.PredictionResult, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(redisEntry{
		IsSpam:           result.IsSpam,
		Score:            result.Score,
		DetectedPatterns: result.DetectedPatterns,
		ModelPredictions: result.ModelPredictions,
		Explanation:      result.Explanation,
		AnalyzedAt:       result.AnalyzedAt,
	})
	if err != nil {
		c.logger.Error("Failed to encode cache entry", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		c.logger.Error("Failed to insert cache entry", zap.Error(err), zap.String("key", key))
	}
}

// Stop closes the Redis client
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
