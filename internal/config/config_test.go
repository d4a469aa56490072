package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	api, err := cfg.GetAPI()
	require.NoError(t, err)
	assert.True(t, api.Enabled)
	assert.Equal(t, "0.0.0.0:5000", api.ListenAddress)
	assert.Equal(t, 10*time.Minute, api.WriteTimeout)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, "memory", cache.Type)
	assert.Equal(t, time.Hour, cache.TTL)

	server, err := cfg.GetServer()
	require.NoError(t, err)
	assert.Equal(t, "none", server.FilterType)
	assert.Equal(t, "X-Spam-Status", server.SpamHeader)
	assert.Equal(t, "127.0.0.1:10026", server.PostfixReinjectAddress())

	assert.Equal(t, "file", cfg.GetArtifacts().Type)
	assert.Equal(t, "spam mail.csv", cfg.DatasetPath())
	assert.Empty(t, cfg.WhitelistedDomains())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
artifacts:
  type: SQLite
  sqlite_path: /tmp/a.db
cache:
  ttl: 5m
spam:
  whitelisted_domains:
    - example.com
server:
  postfix:
    enabled: false
`), 0o644))

	cfg, err := New(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.GetArtifacts().Type)
	assert.Equal(t, "/tmp/a.db", cfg.GetArtifacts().SQLitePath)
	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cache.TTL)
	assert.Equal(t, []string{"example.com"}, cfg.WhitelistedDomains())
	server, err := cfg.GetServer()
	require.NoError(t, err)
	assert.Empty(t, server.PostfixReinjectAddress())
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ML_SPAM_FILTER_API_LISTEN_ADDRESS", "127.0.0.1:9999")
	t.Setenv("ML_SPAM_FILTER_CACHE_TTL", "bogus")

	cfg := NewFromViper(NewEmptyViper())
	api, err := cfg.GetAPI()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", api.ListenAddress)

	_, err = cfg.GetCache()
	assert.ErrorContains(t, err, "cache.ttl")
}

func TestSet(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("training.dataset_path", "other.csv")
	assert.Equal(t, "other.csv", cfg.DatasetPath())
}
