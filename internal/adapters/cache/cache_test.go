package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/ml-spam-filter/internal/core"
)

func sampleResult() *core.PredictionResult {
	return &core.PredictionResult{
		IsSpam:           true,
		Score:            0.8,
		DetectedPatterns: []string{"urgent"},
		ModelPredictions: map[string]float64{"svm": 0.8},
		Explanation:      "Ensemble score 0.80",
		AnalyzedAt:       time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(nil, 0)
	defer c.Stop()
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	c.Set(ctx, "k", sampleResult(), time.Minute)
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, sampleResult(), got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, c.Cleanup(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheIgnoresNonPositiveTTL(t *testing.T) {
	c := NewMemoryCache(nil, 0)
	c.Set(context.Background(), "k", sampleResult(), 0)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheStopIsIdempotent(t *testing.T) {
	c := NewMemoryCache(nil, time.Millisecond)
	c.Stop()
	c.Stop()
}

func TestRedisCache(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skip("Redis not available, skipping test")
	}

	c := NewRedisCacheWithClient(client, "ml-spam-filter:test", nil)
	defer c.Stop()

	key := "v1:" + time.Now().Format(time.RFC3339Nano)
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	c.Set(ctx, key, sampleResult(), time.Minute)
	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, sampleResult(), got)

	ttl, err := client.TTL(ctx, "ml-spam-filter:test:"+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
