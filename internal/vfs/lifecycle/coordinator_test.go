package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage/archive"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage/archive/archivetest"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs/mount"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs/watch"
)

func setup(t *testing.T, mountPoints ...string) (*mount.Table, *watch.Registry) {
	t.Helper()
	ctx := context.Background()
	table := mount.NewTable(storage.NewMemory(), nil, nil)
	files := map[string]string{"sub/readme.txt": "hi"}
	for _, mp := range mountPoints {
		image := archivetest.ZIP(t, files)
		if archive.FormatFor(mp) == archive.FormatISO {
			image = archivetest.ISO(t, files)
		}
		require.NoError(t, table.MountImage(ctx, mp, image))
	}
	return table, watch.NewRegistry(nil, nil)
}

func TestMountLifecycle(t *testing.T) {
	ctx := context.Background()
	table, reg := setup(t, "/mnt/x.zip")
	coord, err := New(table, reg, Options{})
	require.NoError(t, err)

	listener := watch.Func(func(watch.Change) {})
	reg.Subscribe("/mnt/x.zip/sub", listener)
	assert.Empty(t, coord.Reconcile(ctx))
	assert.True(t, table.IsMounted("/mnt/x.zip"))

	reg.Unsubscribe("/mnt/x.zip/sub", listener)
	assert.Equal(t, []string{"/mnt/x.zip"}, coord.Reconcile(ctx))
	assert.False(t, table.IsMounted("/mnt/x.zip"))
}

func TestResubscribeBeforePassKeepsMount(t *testing.T) {
	ctx := context.Background()
	table, reg := setup(t, "/mnt/x")
	coord, err := New(table, reg, Options{})
	require.NoError(t, err)

	listener := watch.Func(func(watch.Change) {})
	reg.Subscribe("/mnt/x/sub", listener)
	reg.Unsubscribe("/mnt/x/sub", listener)
	reg.Subscribe("/mnt/x/sub", listener)

	assert.Empty(t, coord.Reconcile(ctx))
	assert.True(t, table.IsMounted("/mnt/x"))
}

func TestWatchingMountPointKeepsIt(t *testing.T) {
	ctx := context.Background()
	table, reg := setup(t, "/mnt/x.zip")
	coord, err := New(table, reg, Options{})
	require.NoError(t, err)

	reg.Subscribe("/mnt/x.zip", watch.Func(func(watch.Change) {}))
	assert.Empty(t, coord.Reconcile(ctx))
}

func TestWatchingParentDoesNotKeepMount(t *testing.T) {
	ctx := context.Background()
	table, reg := setup(t, "/mnt/x.zip")
	coord, err := New(table, reg, Options{})
	require.NoError(t, err)

	reg.Subscribe("/mnt", watch.Func(func(watch.Change) {}))
	assert.Equal(t, []string{"/mnt/x.zip"}, coord.Reconcile(ctx))
}

func TestSiblingWithSharedPrefixDoesNotKeepMount(t *testing.T) {
	ctx := context.Background()
	table, reg := setup(t, "/mnt/x")
	coord, err := New(table, reg, Options{})
	require.NoError(t, err)

	reg.Subscribe("/mnt/x2", watch.Func(func(watch.Change) {}))
	assert.Equal(t, []string{"/mnt/x"}, coord.Reconcile(ctx))
}

func TestPinnedMountsSurvive(t *testing.T) {
	ctx := context.Background()
	table, reg := setup(t, "/System/boot.iso", "/Users/Public/Desktop/game.zip", "/Users/Public/Desktop/tool.zip")
	coord, err := New(table, reg, Options{Pinned: []string{"/System/**", "/Users/Public/Desktop/game.*"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"/Users/Public/Desktop/tool.zip"}, coord.Reconcile(ctx))
	assert.Equal(t, []string{"/System/boot.iso", "/Users/Public/Desktop/game.zip"}, table.MountPoints())
}

func TestInvalidPinnedPattern(t *testing.T) {
	table, reg := setup(t)
	_, err := New(table, reg, Options{Pinned: []string{"/mnt/[x"}})
	assert.Error(t, err)
}

func TestRunReconcilesOnKeyChanges(t *testing.T) {
	table, reg := setup(t, "/mnt/x.zip")
	coord, err := New(table, reg, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- coord.Run(ctx) }()

	listener := watch.Func(func(watch.Change) {})
	reg.Subscribe("/mnt/x.zip/sub", listener)
	reg.Unsubscribe("/mnt/x.zip/sub", listener)

	assert.Eventually(t, func() bool {
		return !table.IsMounted("/mnt/x.zip")
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
