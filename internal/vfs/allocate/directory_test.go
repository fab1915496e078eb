package allocate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
)

func TestEnsureDirectoryIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()

	require.NoError(t, EnsureDirectory(ctx, store, "/a/b/c"))
	assert.Equal(t, 3, store.writes)

	require.NoError(t, EnsureDirectory(ctx, store, "/a/b/c"))
	assert.Equal(t, 3, store.writes, "existing paths perform no writes")

	for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
		entry, err := store.Stat(ctx, p)
		require.NoError(t, err)
		assert.True(t, entry.IsDir, p)
	}
}

func TestEnsureDirectoryRoot(t *testing.T) {
	store := newFaultyStore()
	require.NoError(t, EnsureDirectory(context.Background(), store, "/"))
	assert.Zero(t, store.writes)
}

func TestDocsReportsScenario(t *testing.T) {
	ctx := context.Background()
	alloc, store, notifier := newAllocator(t)
	require.NoError(t, store.Mkdir(ctx, "/docs"))

	require.NoError(t, alloc.EnsureDirectory(ctx, "/docs/2024/reports"))
	assert.Equal(t, 3, store.writes, "only the two missing levels are created after the seed mkdir")
	for _, p := range []string{"/docs/2024", "/docs/2024/reports"} {
		entry, err := store.Stat(ctx, p)
		require.NoError(t, err)
		assert.True(t, entry.IsDir, p)
	}

	require.NoError(t, alloc.EnsureDirectory(ctx, "/docs/2024/reports"))
	assert.Equal(t, 3, store.writes, "repeating the call is a no-op")

	name, err := alloc.CreateFile(ctx, "q1.txt", "/docs/2024/reports", []byte("q1"))
	require.NoError(t, err)
	assert.Equal(t, "q1.txt", name)

	name, err = alloc.CreateFile(ctx, "q1.txt", "/docs/2024/reports", []byte("again"))
	require.NoError(t, err)
	assert.Equal(t, "q1 (1).txt", name)

	assert.Equal(t, []notification{
		{"/docs/2024/reports", "q1.txt", ""},
		{"/docs/2024/reports", "q1 (1).txt", ""},
	}, notifier.calls)
}

func TestEnsureDirectoryFailureNamesPrefix(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	boom := errors.New("quota exceeded")
	store.failOn["/a/b"] = boom

	err := EnsureDirectory(ctx, store, "/a/b/c")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrStorageFailure)
	assert.ErrorIs(t, err, boom)

	var opErr *storage.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "/a/b", opErr.Path)

	ok, _ := store.Memory.Exists(ctx, "/a/b/c")
	assert.False(t, ok, "the walk stops at the first failure")
}

func TestEnsureDirectoryThroughFile(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	require.NoError(t, store.WriteFile(ctx, "/a", nil, false))

	err := EnsureDirectory(ctx, store, "/a/b")
	assert.ErrorIs(t, err, storage.ErrStorageFailure)
	assert.ErrorIs(t, err, storage.ErrNotDir)
}
