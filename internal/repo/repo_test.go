package repo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jpl-au/pim/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "pim")

	assert.False(t, Exists(dir))
	require.NoError(t, Init(ctx, dir, false, store.NewOptions()))
	assert.True(t, Exists(dir))

	err := Init(ctx, dir, false, store.NewOptions())
	assert.ErrorContains(t, err, "already exists")

	require.NoError(t, Init(ctx, dir, true, store.NewOptions()))

	files := Files(dir)
	require.NotEmpty(t, files)
	assert.Equal(t, DBFile, files[0].Name)
	assert.Positive(t, files[0].Size)
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "pim")
	s, err := Open(context.Background(), dir, store.NewOptions())
	require.NoError(t, err)
	defer s.Close()

	kbs, err := s.KnowledgeBases(context.Background())
	require.NoError(t, err)
	assert.Empty(t, kbs)
	assert.Equal(t, filepath.Join(dir, "journal"), JournalDir(dir))
}
