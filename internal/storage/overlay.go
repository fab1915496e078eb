package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
)

// WhiteoutLog is where the overlay persists deletions of lower entries.
// It lives in the writable layer and never shows up in listings.
const WhiteoutLog = "/.deletedFiles.log"

// Overlay stacks a writable layer over an optional read-only layer.
//
// Reads prefer the upper layer. Writes land in the upper layer after the
// parent directories are copied up. Renaming an entry that exists in the
// lower layer copies it up under the new name and whiteouts the old one.
type Overlay struct {
	upper Writable
	lower Store

	mu        sync.RWMutex
	whiteouts map[string]struct{}
}

// OpenOverlay builds an overlay and loads persisted whiteouts. lower may be
// nil.
func OpenOverlay(ctx context.Context, upper Writable, lower Store) (*Overlay, error) {
	o := &Overlay{
		upper:     upper,
		lower:     lower,
		whiteouts: make(map[string]struct{}),
	}

	data, err := upper.ReadFile(ctx, WhiteoutLog)
	switch {
	case IsNotExist(err):
		return o, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read whiteout log: %w", err)
	}

	var deleted []string
	if err := sonic.Unmarshal(data, &deleted); err != nil {
		return nil, fmt.Errorf("failed to parse whiteout log: %w", err)
	}
	for _, p := range deleted {
		o.whiteouts[paths.Clean(p)] = struct{}{}
	}
	return o, nil
}

// Layers returns the writable and read-only layers
func (o *Overlay) Layers() (Writable, Store) {
	return o.upper, o.lower
}

func (o *Overlay) Exists(ctx context.Context, path string) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.exists(ctx, paths.Clean(path))
}

func (o *Overlay) Stat(ctx context.Context, path string) (Entry, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.stat(ctx, paths.Clean(path))
}

func (o *Overlay) ReadFile(ctx context.Context, path string) ([]byte, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.readFile(ctx, paths.Clean(path))
}

func (o *Overlay) ReadDir(ctx context.Context, path string) ([]Entry, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.readDir(ctx, paths.Clean(path))
}

func (o *Overlay) WriteFile(ctx context.Context, path string, data []byte, overwrite bool) error {
	path = paths.Clean(path)

	o.mu.Lock()
	defer o.mu.Unlock()

	entry, err := o.stat(ctx, path)
	switch {
	case err == nil && !overwrite:
		return opErr("write", path, ErrExist)
	case err == nil && entry.IsDir:
		return opErr("write", path, ErrIsDir)
	case err != nil && !IsNotExist(err):
		return err
	}

	if err := o.prepareParent(ctx, "write", path); err != nil {
		return err
	}
	return o.upper.WriteFile(ctx, path, data, true)
}

func (o *Overlay) Mkdir(ctx context.Context, path string) error {
	path = paths.Clean(path)

	o.mu.Lock()
	defer o.mu.Unlock()

	if ok, err := o.exists(ctx, path); err != nil {
		return err
	} else if ok {
		return opErr("mkdir", path, ErrExist)
	}

	if err := o.prepareParent(ctx, "mkdir", path); err != nil {
		return err
	}
	return o.upper.Mkdir(ctx, path)
}

func (o *Overlay) Rename(ctx context.Context, src, dst string) error {
	src, dst = paths.Clean(src), paths.Clean(dst)

	o.mu.Lock()
	defer o.mu.Unlock()

	if ok, err := o.exists(ctx, src); err != nil {
		return err
	} else if !ok {
		return opErr("rename", src, ErrNotExist)
	}
	if src == paths.Root || paths.IsWithin(dst, src) {
		return opErr("rename", dst, ErrInvalid)
	}
	if ok, err := o.exists(ctx, dst); err != nil {
		return err
	} else if ok {
		return opErr("rename", dst, ErrExist)
	}
	if err := o.prepareParent(ctx, "rename", dst); err != nil {
		return err
	}

	inLower := false
	if o.lower != nil && !o.whitedOut(src) {
		var err error
		if inLower, err = o.lower.Exists(ctx, src); err != nil {
			return err
		}
	}

	if !inLower {
		return o.upper.Rename(ctx, src, dst)
	}

	if err := o.copyUp(ctx, src, dst); err != nil {
		return err
	}
	if err := o.upper.Remove(ctx, src); err != nil && !IsNotExist(err) {
		return err
	}
	o.whiteouts[src] = struct{}{}
	return o.persistWhiteouts(ctx)
}

// Empty wipes the writable layer, forgets every whiteout and drops any cache
// held by the read-only layer.
func (o *Overlay) Empty(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.upper.Empty(ctx); err != nil {
		return err
	}
	o.whiteouts = make(map[string]struct{})

	if emptier, ok := o.lower.(Emptier); ok {
		return emptier.Empty(ctx)
	}
	return nil
}

// Close closes both layers when they hold resources
func (o *Overlay) Close() error {
	var errs []error
	if closer, ok := o.upper.(Closer); ok {
		errs = append(errs, closer.Close())
	}
	if closer, ok := o.lower.(Closer); ok {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}

// whitedOut reports whether path or one of its ancestors was deleted from
// the read-only layer. Whiteouts never hide the writable layer.
func (o *Overlay) whitedOut(path string) bool {
	for p := path; ; p = paths.Dir(p) {
		if _, ok := o.whiteouts[p]; ok {
			return true
		}
		if p == paths.Root {
			return false
		}
	}
}

func (o *Overlay) useLower(path string) bool {
	return o.lower != nil && !o.whitedOut(path)
}

func (o *Overlay) exists(ctx context.Context, path string) (bool, error) {
	if path == WhiteoutLog {
		return false, nil
	}
	if ok, err := o.upper.Exists(ctx, path); err != nil || ok {
		return ok, err
	}
	if !o.useLower(path) {
		return false, nil
	}
	return o.lower.Exists(ctx, path)
}

func (o *Overlay) stat(ctx context.Context, path string) (Entry, error) {
	if path == WhiteoutLog {
		return Entry{}, opErr("stat", path, ErrNotExist)
	}
	entry, err := o.upper.Stat(ctx, path)
	if !IsNotExist(err) || !o.useLower(path) {
		return entry, err
	}
	return o.lower.Stat(ctx, path)
}

func (o *Overlay) readFile(ctx context.Context, path string) ([]byte, error) {
	if path == WhiteoutLog {
		return nil, opErr("read", path, ErrNotExist)
	}
	data, err := o.upper.ReadFile(ctx, path)
	if !IsNotExist(err) || !o.useLower(path) {
		return data, err
	}
	return o.lower.ReadFile(ctx, path)
}

func (o *Overlay) readDir(ctx context.Context, path string) ([]Entry, error) {
	entry, err := o.stat(ctx, path)
	if err != nil {
		return nil, opErr("readdir", path, err)
	}
	if !entry.IsDir {
		return nil, opErr("readdir", path, ErrNotDir)
	}

	merged := make(map[string]Entry)
	if o.useLower(path) {
		lowerEntries, err := o.lower.ReadDir(ctx, path)
		if err != nil && !IsNotExist(err) && !errors.Is(err, ErrNotDir) {
			return nil, err
		}
		for _, e := range lowerEntries {
			if !o.whitedOut(e.Path) {
				merged[e.Name] = e
			}
		}
	}

	upperEntries, err := o.upper.ReadDir(ctx, path)
	if err != nil && !IsNotExist(err) && !errors.Is(err, ErrNotDir) {
		return nil, err
	}
	for _, e := range upperEntries {
		if e.Path != WhiteoutLog {
			merged[e.Name] = e
		}
	}

	entries := make([]Entry, 0, len(merged))
	for _, e := range merged {
		entries = append(entries, e)
	}
	sortEntries(entries)
	return entries, nil
}

// prepareParent checks the parent of path is a directory in the merged view
// and makes sure it exists in the writable layer.
func (o *Overlay) prepareParent(ctx context.Context, op, path string) error {
	if path == paths.Root {
		return opErr(op, path, ErrExist)
	}

	parent := paths.Dir(path)
	entry, err := o.stat(ctx, parent)
	if err != nil {
		return opErr(op, path, ErrNotExist)
	}
	if !entry.IsDir {
		return opErr(op, path, ErrNotDir)
	}

	for i, segments := 1, paths.Segments(parent); i <= len(segments); i++ {
		dir := paths.Join(paths.Root, segments[:i]...)
		if ok, err := o.upper.Exists(ctx, dir); err != nil {
			return err
		} else if ok {
			continue
		}
		if err := o.upper.Mkdir(ctx, dir); err != nil && !IsExist(err) {
			return err
		}
	}
	return nil
}

// copyUp copies the merged subtree at src into the writable layer at dst
func (o *Overlay) copyUp(ctx context.Context, src, dst string) error {
	entry, err := o.stat(ctx, src)
	if err != nil {
		return err
	}

	if !entry.IsDir {
		data, err := o.readFile(ctx, src)
		if err != nil {
			return err
		}
		return o.upper.WriteFile(ctx, dst, data, false)
	}

	if err := o.upper.Mkdir(ctx, dst); err != nil && !IsExist(err) {
		return err
	}
	children, err := o.readDir(ctx, src)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := o.copyUp(ctx, child.Path, paths.Join(dst, child.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (o *Overlay) persistWhiteouts(ctx context.Context) error {
	deleted := make([]string, 0, len(o.whiteouts))
	for p := range o.whiteouts {
		deleted = append(deleted, p)
	}
	sort.Strings(deleted)

	data, err := sonic.Marshal(deleted)
	if err != nil {
		return fmt.Errorf("failed to encode whiteout log: %w", err)
	}
	return o.upper.WriteFile(ctx, WhiteoutLog, data, true)
}
