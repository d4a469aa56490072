package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/ml-spam-filter/internal/adapters/filter"
	"github.com/mikey/ml-spam-filter/internal/api"
	"github.com/mikey/ml-spam-filter/internal/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestBuildContainer(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "artifacts:\n  dir: "+filepath.Join(dir, "models")+"\nserver:\n  filter_type: milter\n")

	container, err := BuildContainer(ConfigFile(path))
	require.NoError(t, err)

	err = container.Invoke(func(svc *core.SpamFilterService, srv *api.Server, ef core.EmailFilter, cache core.PredictionCache) {
		assert.False(t, svc.Ready())
		assert.NotNil(t, srv)
		assert.IsType(t, &filter.MilterFilter{}, ef)
		assert.NotNil(t, cache)
	})
	require.NoError(t, err)
}

func TestBuildCLIContainer(t *testing.T) {
	dir := t.TempDir()
	flags := &CLIFlags{
		ConfigFile:   writeConfig(t, "cache:\n  type: redis\n"),
		ArtifactsDir: filepath.Join(dir, "models"),
	}

	container, err := BuildCLIContainer(flags)
	require.NoError(t, err)

	err = container.Invoke(func(svc *core.SpamFilterService, ef core.EmailFilter, cache core.PredictionCache, store core.ArtifactStore) {
		assert.False(t, svc.Ready())
		assert.IsType(t, &filter.CliFilter{}, ef)
		assert.Nil(t, cache)
		assert.NotNil(t, store)
	})
	require.NoError(t, err)
}
