package archive

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage/archive/archivetest"
)

func findEntry(t *testing.T, entries []storage.Entry, name string) storage.Entry {
	t.Helper()
	for _, e := range entries {
		if strings.EqualFold(e.Name, name) {
			return e
		}
	}
	t.Fatalf("entry %q not found in %v", name, entries)
	return storage.Entry{}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"/Users/Public/disk.iso", FormatISO},
		{"/Users/Public/DISK.ISO", FormatISO},
		{"/Users/Public/game.zip", FormatZIP},
		{"/Users/Public/bundle.jsdos", FormatZIP},
		{"/Users/Public/noext", FormatZIP},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFor(tt.path))
		})
	}
}

func TestZIPStore(t *testing.T) {
	ctx := context.Background()
	image := archivetest.ZIP(t, map[string]string{
		"readme.txt":        "top",
		"docs/a.txt":        "a",
		"docs/nested/b.txt": "b",
	})

	store, err := Open(FormatZIP, image)
	require.NoError(t, err)
	assert.Equal(t, FormatZIP, store.Format())

	root, err := store.ReadDir(ctx, "/")
	require.NoError(t, err)
	var rootNames []string
	for _, e := range root {
		rootNames = append(rootNames, e.Name)
	}
	assert.Equal(t, []string{"docs", "readme.txt"}, rootNames)

	entry, err := store.Stat(ctx, "/docs/nested")
	require.NoError(t, err)
	assert.True(t, entry.IsDir, "implicit directories are indexed")

	data, err := store.ReadFile(ctx, "/docs/nested/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))

	_, err = store.ReadFile(ctx, "/docs")
	assert.ErrorIs(t, err, storage.ErrIsDir)

	assert.ErrorIs(t, store.WriteFile(ctx, "/new.txt", nil, false), storage.ErrReadOnly)
	assert.ErrorIs(t, store.Mkdir(ctx, "/new"), storage.ErrReadOnly)
	assert.ErrorIs(t, store.Rename(ctx, "/readme.txt", "/r.txt"), storage.ErrReadOnly)
}

func TestZIPUnreadable(t *testing.T) {
	_, err := OpenZIP([]byte("definitely not a zip"))
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestISOStore(t *testing.T) {
	ctx := context.Background()
	image := archivetest.ISO(t, map[string]string{
		"README.TXT":     "hello iso",
		"DOCS/GUIDE.TXT": "guide",
	})

	store, err := Open(FormatISO, image)
	require.NoError(t, err)
	assert.Equal(t, FormatISO, store.Format())

	root, err := store.ReadDir(ctx, "/")
	require.NoError(t, err)

	readme := findEntry(t, root, "readme.txt")
	assert.False(t, readme.IsDir)
	data, err := store.ReadFile(ctx, readme.Path)
	require.NoError(t, err)
	assert.Equal(t, "hello iso", string(data))

	docs := findEntry(t, root, "docs")
	assert.True(t, docs.IsDir)

	children, err := store.ReadDir(ctx, docs.Path)
	require.NoError(t, err)
	guide := findEntry(t, children, "guide.txt")
	data, err = store.ReadFile(ctx, guide.Path)
	require.NoError(t, err)
	assert.Equal(t, "guide", string(data))

	assert.ErrorIs(t, store.WriteFile(ctx, "/X.TXT", nil, false), storage.ErrReadOnly)
}

func TestISOUnreadable(t *testing.T) {
	_, err := OpenISO(bytes.Repeat([]byte{0}, 4096))
	assert.ErrorIs(t, err, ErrUnreadable)
}
