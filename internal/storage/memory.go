package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
)

type memNode struct {
	isDir   bool
	data    []byte
	modTime time.Time
}

// Memory is a writable store held entirely in memory
type Memory struct {
	mu    sync.RWMutex
	nodes map[string]*memNode
}

// NewMemory creates an empty memory store containing only the root
func NewMemory() *Memory {
	m := &Memory{}
	m.reset()
	return m
}

func (m *Memory) reset() {
	m.nodes = map[string]*memNode{
		paths.Root: {isDir: true, modTime: time.Now()},
	}
}

func (m *Memory) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.nodes[paths.Clean(path)]
	return ok, nil
}

func (m *Memory) Stat(ctx context.Context, path string) (Entry, error) {
	path = paths.Clean(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	node, ok := m.nodes[path]
	if !ok {
		return Entry{}, opErr("stat", path, ErrNotExist)
	}
	return node.entry(path), nil
}

func (m *Memory) ReadFile(ctx context.Context, path string) ([]byte, error) {
	path = paths.Clean(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	node, ok := m.nodes[path]
	if !ok {
		return nil, opErr("read", path, ErrNotExist)
	}
	if node.isDir {
		return nil, opErr("read", path, ErrIsDir)
	}
	return append([]byte(nil), node.data...), nil
}

func (m *Memory) ReadDir(ctx context.Context, path string) ([]Entry, error) {
	path = paths.Clean(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	node, ok := m.nodes[path]
	if !ok {
		return nil, opErr("readdir", path, ErrNotExist)
	}
	if !node.isDir {
		return nil, opErr("readdir", path, ErrNotDir)
	}

	var entries []Entry
	for p, n := range m.nodes {
		if p != paths.Root && paths.Dir(p) == path {
			entries = append(entries, n.entry(p))
		}
	}
	sortEntries(entries)
	return entries, nil
}

func (m *Memory) WriteFile(ctx context.Context, path string, data []byte, overwrite bool) error {
	path = paths.Clean(path)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkParent("write", path); err != nil {
		return err
	}
	if node, ok := m.nodes[path]; ok {
		if !overwrite {
			return opErr("write", path, ErrExist)
		}
		if node.isDir {
			return opErr("write", path, ErrIsDir)
		}
	}

	m.nodes[path] = &memNode{data: append([]byte(nil), data...), modTime: time.Now()}
	return nil
}

func (m *Memory) Mkdir(ctx context.Context, path string) error {
	path = paths.Clean(path)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[path]; ok {
		return opErr("mkdir", path, ErrExist)
	}
	if err := m.checkParent("mkdir", path); err != nil {
		return err
	}

	m.nodes[path] = &memNode{isDir: true, modTime: time.Now()}
	return nil
}

func (m *Memory) Rename(ctx context.Context, src, dst string) error {
	src, dst = paths.Clean(src), paths.Clean(dst)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[src]; !ok {
		return opErr("rename", src, ErrNotExist)
	}
	if src == paths.Root || paths.IsWithin(dst, src) {
		return opErr("rename", dst, ErrInvalid)
	}
	if _, ok := m.nodes[dst]; ok {
		return opErr("rename", dst, ErrExist)
	}
	if err := m.checkParent("rename", dst); err != nil {
		return err
	}

	moved := make(map[string]*memNode)
	for p, n := range m.nodes {
		if paths.IsWithin(p, src) {
			moved[dst+strings.TrimPrefix(p, src)] = n
			delete(m.nodes, p)
		}
	}
	for p, n := range moved {
		m.nodes[p] = n
	}
	return nil
}

// Remove deletes path and everything beneath it
func (m *Memory) Remove(ctx context.Context, path string) error {
	path = paths.Clean(path)
	if path == paths.Root {
		return opErr("remove", path, ErrInvalid)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[path]; !ok {
		return opErr("remove", path, ErrNotExist)
	}
	for p := range m.nodes {
		if paths.IsWithin(p, path) {
			delete(m.nodes, p)
		}
	}
	return nil
}

// Empty drops every entry except the root
func (m *Memory) Empty(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reset()
	return nil
}

// checkParent must be called with the write lock held
func (m *Memory) checkParent(op, path string) error {
	if path == paths.Root {
		return opErr(op, path, ErrExist)
	}
	parent, ok := m.nodes[paths.Dir(path)]
	if !ok {
		return opErr(op, path, ErrNotExist)
	}
	if !parent.isDir {
		return opErr(op, path, ErrNotDir)
	}
	return nil
}

func (n *memNode) entry(path string) Entry {
	name := paths.Base(path)
	if path == paths.Root {
		name = ""
	}
	return Entry{
		Name:    name,
		Path:    path,
		IsDir:   n.isDir,
		Size:    int64(len(n.data)),
		ModTime: n.modTime,
	}
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
}
