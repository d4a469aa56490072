package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/ml-spam-filter/internal/core"
)

func sampleSet(version string) core.ArtifactSet {
	set := core.ArtifactSet{}
	set.Add(core.Artifact{Name: core.ArtifactVectorizer, Format: core.FormatGob, Data: []byte("vec-" + version)})
	set.Add(core.Artifact{Name: "naive_bayes", Format: core.FormatGob, Data: []byte("nb-" + version)})
	set.Add(core.Artifact{Name: core.ArtifactTrainingStats, Format: core.FormatJSON, Data: []byte(`{"dataset_size":1}`)})
	return set
}

// exerciseStore checks the contract shared by every backend.
func exerciseStore(t *testing.T, s core.ArtifactStore) {
	ctx := context.Background()

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.Save(ctx, sampleSet("v1")))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSet("v1"), got)

	second := sampleSet("v2")
	delete(second, core.ArtifactTrainingStats)
	require.NoError(t, s.Save(ctx, second))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)
	assert.NotContains(t, got, core.ArtifactTrainingStats)
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	s, err := NewFileStore(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	exerciseStore(t, s)

	_, err = os.Stat(filepath.Join(dir, "vectorizer.gob"))
	assert.NoError(t, err)

	siblings, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	assert.Len(t, siblings, 1, "staging and backup directories are removed")
}

func TestFileStoreLoadsBackupWhenLiveDirMissing(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "models")
	s, err := NewFileStore(dir, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, sampleSet("v1")))
	require.NoError(t, os.Rename(dir, dir+".old-20240101T000000.000000000"))
	require.NoError(t, s.Save(ctx, sampleSet("v2")))
	require.NoError(t, os.Rename(dir, dir+".old-20240102T000000.000000000"))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSet("v2"), got)
}

func TestFileStoreRequiresDir(t *testing.T) {
	_, err := NewFileStore("", nil)
	assert.Error(t, err)
}

func TestFileStoreCanceledSaveKeepsPrevious(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), sampleSet("v1")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Save(ctx, sampleSet("v2")))

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleSet("v1"), got)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "artifacts.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("ML_SPAM_FILTER_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("ML_SPAM_FILTER_TEST_MYSQL_DSN not set")
	}
	s, err := NewMySQLStore(dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()
	_, err = s.db.Exec(`DELETE FROM model_artifacts`)
	require.NoError(t, err)
	exerciseStore(t, s)
}
