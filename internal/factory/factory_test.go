package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/ml-spam-filter/internal/adapters/cache"
	"github.com/mikey/ml-spam-filter/internal/adapters/filter"
	"github.com/mikey/ml-spam-filter/internal/adapters/store"
	"github.com/mikey/ml-spam-filter/internal/config"
	"github.com/mikey/ml-spam-filter/internal/core"
)

func newConfig() *config.Config {
	return config.NewFromViper(config.NewEmptyViper())
}

type nopAnalyzer struct{}

func (nopAnalyzer) AnalyzeEmail(context.Context, *core.Email) (*core.PredictionResult, error) {
	return &core.PredictionResult{}, nil
}

func TestStoreFactory(t *testing.T) {
	dir := t.TempDir()
	cfg := newConfig()
	logger := zaptest.NewLogger(t)
	f := NewStoreFactory(cfg, logger)

	cfg.Set("artifacts.dir", filepath.Join(dir, "models"))
	s, err := f.CreateArtifactStore()
	require.NoError(t, err)
	assert.IsType(t, &store.FileStore{}, s)

	cfg.Set("artifacts.type", "sqlite")
	cfg.Set("artifacts.sqlite_path", filepath.Join(dir, "db", "artifacts.db"))
	s, err = f.CreateArtifactStore()
	require.NoError(t, err)
	require.IsType(t, &store.SQLiteStore{}, s)
	assert.NoError(t, s.(*store.SQLiteStore).Close())

	cfg.Set("artifacts.type", "s3")
	_, err = f.CreateArtifactStore()
	assert.ErrorContains(t, err, "unsupported artifact store type")
}

func TestCacheFactory(t *testing.T) {
	cfg := newConfig()
	f := NewCacheFactory(cfg, zaptest.NewLogger(t))

	c, err := f.CreatePredictionCache()
	require.NoError(t, err)
	require.IsType(t, &cache.MemoryCache{}, c)
	c.(*cache.MemoryCache).Stop()

	sc, err := f.ServiceConfig()
	require.NoError(t, err)
	assert.True(t, sc.CacheEnabled)
	assert.Positive(t, sc.CacheTTL)
	assert.Equal(t, 1<<20, sc.MaxTextBytes)

	cfg.Set("cache.enabled", false)
	c, err = f.CreatePredictionCache()
	require.NoError(t, err)
	assert.Nil(t, c)

	cfg.Set("cache.enabled", true)
	cfg.Set("cache.type", "memcached")
	_, err = f.CreatePredictionCache()
	assert.ErrorContains(t, err, "unsupported cache type")
}

func TestFilterFactory(t *testing.T) {
	cfg := newConfig()
	f := NewFilterFactory(cfg, zaptest.NewLogger(t))

	ef, err := f.CreateEmailFilter(nopAnalyzer{})
	require.NoError(t, err)
	assert.Nil(t, ef)

	cfg.Set("server.filter_type", "postfix")
	ef, err = f.CreateEmailFilter(nopAnalyzer{})
	require.NoError(t, err)
	assert.IsType(t, &filter.PostfixFilter{}, ef)

	cfg.Set("server.filter_type", "milter")
	ef, err = f.CreateEmailFilter(nopAnalyzer{})
	require.NoError(t, err)
	assert.IsType(t, &filter.MilterFilter{}, ef)

	cfg.Set("server.filter_type", "cli")
	ef, err = f.CreateEmailFilter(nopAnalyzer{})
	require.NoError(t, err)
	assert.IsType(t, &filter.CliFilter{}, ef)

	cfg.Set("server.filter_type", "lmtp")
	_, err = f.CreateEmailFilter(nopAnalyzer{})
	assert.Error(t, err)
}

func TestTextProcessorFactory(t *testing.T) {
	tp := NewTextProcessorFactory(zaptest.NewLogger(t)).CreateTextProcessor()
	require.NotNil(t, tp)
	assert.NotEmpty(t, tp.Normalize("Hello World"))
}
