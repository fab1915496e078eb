package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// HostDir is a read-only view of a directory on the host. The directory is
// indexed once when opened; content is read from disk on demand.
type HostDir struct {
	ReadOnly
	*Tree
	root string
}

// OpenHostDir indexes root and returns a store over it
func OpenHostDir(ctx context.Context, root string) (*HostDir, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid host directory: %w", err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to open host directory: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("host path %s is not a directory", root)
	}

	tree := NewTree()
	var mu sync.Mutex

	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || path == root {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		treePath := "/" + filepath.ToSlash(rel)

		mu.Lock()
		defer mu.Unlock()

		if d.IsDir() {
			tree.AddDir(treePath, info.ModTime())
		} else if info.Mode().IsRegular() {
			tree.AddFile(treePath, info.Size(), info.ModTime(), path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index host directory: %w", err)
	}

	return &HostDir{Tree: tree, root: root}, nil
}

func (h *HostDir) ReadFile(ctx context.Context, path string) ([]byte, error) {
	source, err := h.Source(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(source.(string))
	if err != nil {
		return nil, opErr("read", path, err)
	}
	return data, nil
}
