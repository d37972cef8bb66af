package kvstore_test

import (
	"context"
	"testing"

	"taskReminder/internal/kvstore"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ kvstore.Store = (*kvstore.Memory)(nil)
	_ kvstore.Store = (*kvstore.File)(nil)
	_ kvstore.Store = (*kvstore.Redis)(nil)
)

// exerciseStore runs the shared contract against any backend
func exerciseStore(t *testing.T, store kvstore.Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	require.NoError(t, store.Set(ctx, "cache:v1:/", "a"))
	require.NoError(t, store.Set(ctx, "cache:v1:/add-task", "b"))
	require.NoError(t, store.Set(ctx, "cache:v2:/", "c"))
	require.NoError(t, store.Set(ctx, "other", "d"))

	v, err := store.Get(ctx, "cache:v1:/")
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	keys, err := store.Keys(ctx, "cache:v1:")
	require.NoError(t, err)
	assert.Equal(t, []string{"cache:v1:/", "cache:v1:/add-task"}, keys)

	require.NoError(t, store.Set(ctx, "other", "e"))
	v, err = store.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "e", v)

	require.NoError(t, store.Delete(ctx, "other"))
	require.NoError(t, store.Delete(ctx, "other"))
	_, err = store.Get(ctx, "other")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

// TestMemory tests the in-process backend
func TestMemory(t *testing.T) {
	exerciseStore(t, kvstore.NewMemory())
}

// TestFile tests the file backend and that data survives a reopen
func TestFile(t *testing.T) {
	fsys := afero.NewMemMapFs()

	store, err := kvstore.NewFile(fsys, "data/store.json")
	require.NoError(t, err)
	exerciseStore(t, store)

	reopened, err := kvstore.NewFile(fsys, "data/store.json")
	require.NoError(t, err)
	v, err := reopened.Get(context.Background(), "cache:v2:/")
	require.NoError(t, err)
	assert.Equal(t, "c", v)
}

// TestFile_Corrupt tests that a corrupt file starts empty
func TestFile_Corrupt(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "store.json", []byte("{not json"), 0o644))

	store, err := kvstore.NewFile(fsys, "store.json")
	require.NoError(t, err)

	keys, err := store.Keys(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

// TestFile_ReadOnly tests that a failed write leaves the map unchanged
func TestFile_ReadOnly(t *testing.T) {
	base := afero.NewMemMapFs()
	store, err := kvstore.NewFile(afero.NewReadOnlyFs(base), "store.json")
	require.NoError(t, err)

	ctx := context.Background()
	assert.Error(t, store.Set(ctx, "k", "v"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}
