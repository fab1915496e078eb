package mount

import (
	"context"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
)

func (t *Table) Exists(ctx context.Context, path string) (bool, error) {
	store, _, inner := t.resolve(path)
	return store.Exists(ctx, inner)
}

func (t *Table) Stat(ctx context.Context, path string) (storage.Entry, error) {
	store, mountPath, inner := t.resolve(path)
	entry, err := store.Stat(ctx, inner)
	if err != nil || mountPath == "" {
		return entry, err
	}
	return outerEntry(entry, mountPath), nil
}

func (t *Table) ReadFile(ctx context.Context, path string) ([]byte, error) {
	store, _, inner := t.resolve(path)
	return store.ReadFile(ctx, inner)
}

// ReadDir lists path. Entries that are themselves mount points are reported
// as directories.
func (t *Table) ReadDir(ctx context.Context, path string) ([]storage.Entry, error) {
	store, mountPath, inner := t.resolve(path)
	entries, err := store.ReadDir(ctx, inner)
	if err != nil {
		return nil, err
	}

	for i, e := range entries {
		if mountPath != "" {
			e = outerEntry(e, mountPath)
		}
		if e.IsDir || !t.IsMounted(e.Path) {
			entries[i] = e
			continue
		}
		e.IsDir = true
		e.Size = 0
		entries[i] = e
	}
	return entries, nil
}

func (t *Table) WriteFile(ctx context.Context, path string, data []byte, overwrite bool) error {
	store, mountPath, inner := t.resolve(path)
	if mountPath != "" {
		return readOnly("write", path)
	}
	return store.WriteFile(ctx, inner, data, overwrite)
}

func (t *Table) Mkdir(ctx context.Context, path string) error {
	store, mountPath, inner := t.resolve(path)
	if mountPath != "" {
		return readOnly("mkdir", path)
	}
	return store.Mkdir(ctx, inner)
}

// Rename moves within the base store only. Archives are read-only and
// nothing moves between stores.
func (t *Table) Rename(ctx context.Context, src, dst string) error {
	store, srcMount, srcInner := t.resolve(src)
	_, dstMount, dstInner := t.resolve(dst)

	switch {
	case srcMount != dstMount:
		return &storage.OpError{Op: "rename", Path: paths.Clean(dst), Err: storage.ErrCrossDevice}
	case srcMount != "":
		return readOnly("rename", src)
	}
	return store.Rename(ctx, srcInner, dstInner)
}

func readOnly(op, path string) error {
	return &storage.OpError{Op: op, Path: paths.Clean(path), Err: storage.ErrReadOnly}
}

func outerEntry(e storage.Entry, mountPath string) storage.Entry {
	e.Path = paths.Join(mountPath, e.Path)
	e.Name = paths.Base(e.Path)
	return e
}
