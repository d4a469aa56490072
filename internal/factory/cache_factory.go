package factory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/adapters/cache"
	"github.com/mikey/ml-spam-filter/internal/config"
	"github.com/mikey/ml-spam-filter/internal/core"
)

// CacheFactory creates prediction caches based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreatePredictionCache creates the cache named by cache.type. A disabled
// cache yields nil.
func (f *CacheFactory) CreatePredictionCache() (core.PredictionCache, error) {
	cfg, err := f.cfg.GetCache()
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Type {
	case "memory":
		return cache.NewMemoryCache(f.logger, cfg.CleanupFrequency), nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return cache.NewRedisCache(ctx, cfg.RedisURL, cfg.KeyPrefix, f.logger)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// ServiceConfig returns the cache settings the service needs
func (f *CacheFactory) ServiceConfig() (core.ServiceConfig, error) {
	cfg, err := f.cfg.GetCache()
	if err != nil {
		return core.ServiceConfig{}, err
	}
	return core.ServiceConfig{
		CacheEnabled: cfg.Enabled,
		CacheTTL:     cfg.TTL,
		MaxTextBytes: f.cfg.GetInt("spam.max_text_bytes"),
	}, nil
}
