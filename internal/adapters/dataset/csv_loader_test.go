package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/ml-spam-filter/internal/core"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadNamedColumns(t *testing.T) {
	path := writeFile(t, "Messages,Category\n"+
		"\"Win a prize, now\",spam\n"+
		"See you at lunch,ham\n")

	rows, err := NewCSVLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []core.LabeledEmail{
		{Text: "Win a prize, now", Label: core.LabelSpam},
		{Text: "See you at lunch", Label: core.LabelHam},
	}, rows)
}

func TestLoadRemapsColumnsPositionally(t *testing.T) {
	path := writeFile(t, "v1,v2,extra\nham,hello there,x\nspam,free cash,y\n")

	rows, err := NewCSVLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, core.LabelHam, rows[0].Label)
	assert.Equal(t, "free cash", rows[1].Text)
}

func TestLoadDropsInvalidRows(t *testing.T) {
	path := writeFile(t, "Category,Messages\n"+
		"ham,ok\n"+
		"Spam,wrong case\n"+
		"phishing,unknown label\n"+
		"spam,\n"+
		",no label\n"+
		"spam\n"+
		"spam,kept\n")

	rows, err := NewCSVLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Contains(t, []int{core.LabelHam, core.LabelSpam}, row.Label)
	}
}

func TestLoadLatin1(t *testing.T) {
	path := writeFile(t, "Category,Messages\nham,caf\xe9 tomorrow\nspam,prize\n")

	rows, err := NewCSVLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "café tomorrow", rows[0].Text)
}

func TestLoadErrors(t *testing.T) {
	loader := NewCSVLoader(nil)
	ctx := context.Background()

	_, err := loader.Load(ctx, filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, core.ErrDatasetNotFound)

	_, err = loader.Load(ctx, t.TempDir())
	assert.ErrorIs(t, err, core.ErrDatasetNotFound)

	_, err = loader.Load(ctx, writeFile(t, "only\nham\n"))
	assert.ErrorIs(t, err, core.ErrMalformedDataset)

	_, err = loader.Load(ctx, writeFile(t, ""))
	assert.ErrorIs(t, err, core.ErrMalformedDataset)

	_, err = loader.Load(ctx, writeFile(t, "Category,Messages\nother,text\n"))
	assert.ErrorIs(t, err, core.ErrEmptyDataset)
}
