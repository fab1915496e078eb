package storage

import (
	"context"
	"time"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
)

// Tree is an immutable index of a read-only store. It is filled once while
// the store is built and only read afterwards, so it needs no locking.
type Tree struct {
	nodes    map[string]*treeNode
	children map[string][]string
}

type treeNode struct {
	entry  Entry
	source any
}

// NewTree creates an index holding only the root directory
func NewTree() *Tree {
	return &Tree{
		nodes: map[string]*treeNode{
			paths.Root: {entry: Entry{Path: paths.Root, IsDir: true}},
		},
		children: make(map[string][]string),
	}
}

// AddDir indexes a directory and any missing ancestors. A file already
// indexed at path becomes a directory: when a malformed source lists both
// "a" and "a/...", the directory wins regardless of order.
func (t *Tree) AddDir(path string, modTime time.Time) {
	path = paths.Clean(path)
	if node, ok := t.nodes[path]; ok {
		if !node.entry.IsDir {
			node.entry.IsDir = true
			node.entry.Size = 0
			node.source = nil
		}
		if modTime.After(node.entry.ModTime) {
			node.entry.ModTime = modTime
		}
		return
	}

	t.AddDir(paths.Dir(path), time.Time{})
	t.insert(path, &treeNode{entry: Entry{
		Name:    paths.Base(path),
		Path:    path,
		IsDir:   true,
		ModTime: modTime,
	}})
}

// AddFile indexes a file; source is handed back by Source when the owning
// store needs to load the content. A file never replaces a directory, and
// a repeated file keeps the last registration.
func (t *Tree) AddFile(path string, size int64, modTime time.Time, source any) {
	path = paths.Clean(path)
	if path == paths.Root {
		return
	}

	t.AddDir(paths.Dir(path), time.Time{})
	entry := Entry{
		Name:    paths.Base(path),
		Path:    path,
		Size:    size,
		ModTime: modTime,
	}
	if node, ok := t.nodes[path]; ok {
		if node.entry.IsDir {
			return
		}
		node.entry = entry
		node.source = source
		return
	}
	t.insert(path, &treeNode{entry: entry, source: source})
}

func (t *Tree) insert(path string, node *treeNode) {
	t.nodes[path] = node
	parent := paths.Dir(path)
	t.children[parent] = append(t.children[parent], path)
}

// Len returns the number of indexed entries, root included
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Source returns what was registered for the file at path
func (t *Tree) Source(path string) (any, error) {
	path = paths.Clean(path)

	node, ok := t.nodes[path]
	if !ok {
		return nil, opErr("read", path, ErrNotExist)
	}
	if node.entry.IsDir {
		return nil, opErr("read", path, ErrIsDir)
	}
	return node.source, nil
}

func (t *Tree) Exists(ctx context.Context, path string) (bool, error) {
	_, ok := t.nodes[paths.Clean(path)]
	return ok, nil
}

func (t *Tree) Stat(ctx context.Context, path string) (Entry, error) {
	path = paths.Clean(path)

	node, ok := t.nodes[path]
	if !ok {
		return Entry{}, opErr("stat", path, ErrNotExist)
	}
	return node.entry, nil
}

func (t *Tree) ReadDir(ctx context.Context, path string) ([]Entry, error) {
	path = paths.Clean(path)

	node, ok := t.nodes[path]
	if !ok {
		return nil, opErr("readdir", path, ErrNotExist)
	}
	if !node.entry.IsDir {
		return nil, opErr("readdir", path, ErrNotDir)
	}

	entries := make([]Entry, 0, len(t.children[path]))
	for _, child := range t.children[path] {
		entries = append(entries, t.nodes[child].entry)
	}
	sortEntries(entries)
	return entries, nil
}

// ReadOnly supplies the mutating half of Store for stores that refuse writes
type ReadOnly struct{}

func (ReadOnly) WriteFile(ctx context.Context, path string, data []byte, overwrite bool) error {
	return opErr("write", path, ErrReadOnly)
}

func (ReadOnly) Mkdir(ctx context.Context, path string) error {
	return opErr("mkdir", path, ErrReadOnly)
}

func (ReadOnly) Rename(ctx context.Context, src, dst string) error {
	return opErr("rename", src, ErrReadOnly)
}
