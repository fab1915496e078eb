// Package mount grafts read-only archive stores onto paths of a base store.
//
// Table is itself a storage.Store: every call is routed to the archive with
// the longest mount path containing the target, or to the base store when
// none does. Resolution happens on each call, so mounts and unmounts take
// effect immediately for every caller.
package mount

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage/archive"
)

// Info describes one mounted archive
type Info struct {
	Path   string         `json:"path"`
	Format archive.Format `json:"format"`
}

// Table is the mount table over a base store
type Table struct {
	base storage.Store

	mu     sync.RWMutex
	mounts map[string]archive.Store

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewTable creates a mount table with nothing mounted
func NewTable(base storage.Store, logger *zap.Logger, metrics *monitoring.Metrics) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{
		base:    base,
		mounts:  make(map[string]archive.Store),
		logger:  logger,
		metrics: metrics,
	}
}

// Base returns the store used outside every mount
func (t *Table) Base() storage.Store {
	return t.base
}

// Mount reads the image at path through the table and grafts it at path
func (t *Table) Mount(ctx context.Context, path string) error {
	path = paths.Clean(path)
	if err := t.checkMountable(path); err != nil {
		return t.failed(err)
	}

	image, err := t.ReadFile(ctx, path)
	if err != nil {
		return t.failed(&Error{Path: path, Kind: ErrSourceReadFailed, Err: err})
	}
	return t.MountImage(ctx, path, image)
}

// MountImage parses image and grafts it at path. The container format is
// chosen by the extension of path.
func (t *Table) MountImage(ctx context.Context, path string, image []byte) error {
	path = paths.Clean(path)
	if err := t.checkMountable(path); err != nil {
		return t.failed(err)
	}

	format := archive.FormatFor(path)
	store, err := archive.Open(format, image)
	if err != nil {
		return t.failed(&Error{Path: path, Kind: ErrUnreadable, Err: err})
	}

	t.mu.Lock()
	if _, ok := t.mounts[path]; ok {
		t.mu.Unlock()
		return t.failed(&Error{Path: path, Kind: ErrAlreadyMounted})
	}
	t.mounts[path] = store
	count := len(t.mounts)
	t.mu.Unlock()

	t.logger.Info("Archive mounted",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("size", len(image)))
	t.metrics.RecordMount("mount", "success")
	t.metrics.SetMountsActive(count)
	return nil
}

// Unmount removes the mount at path. Unmounting a path that is not mounted,
// or the root, does nothing. It reports whether a mount was removed.
func (t *Table) Unmount(path string) bool {
	path = paths.Clean(path)
	if path == paths.Root {
		return false
	}

	t.mu.Lock()
	_, ok := t.mounts[path]
	delete(t.mounts, path)
	count := len(t.mounts)
	t.mu.Unlock()

	if ok {
		t.logger.Info("Archive unmounted", zap.String("path", path))
		t.metrics.RecordMount("unmount", "success")
		t.metrics.SetMountsActive(count)
	}
	return ok
}

// IsMounted reports whether an archive is mounted exactly at path
func (t *Table) IsMounted(path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.mounts[paths.Clean(path)]
	return ok
}

// MountPoints returns the mount paths in sorted order
func (t *Table) MountPoints() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	points := make([]string, 0, len(t.mounts))
	for p := range t.mounts {
		points = append(points, p)
	}
	sort.Strings(points)
	return points
}

// Mounts describes every mounted archive in path order
func (t *Table) Mounts() []Info {
	t.mu.RLock()
	defer t.mu.RUnlock()

	infos := make([]Info, 0, len(t.mounts))
	for p, s := range t.mounts {
		infos = append(infos, Info{Path: p, Format: s.Format()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos
}

func (t *Table) checkMountable(path string) error {
	if path == paths.Root {
		return &Error{Path: path, Kind: ErrRootMount}
	}
	if t.IsMounted(path) {
		return &Error{Path: path, Kind: ErrAlreadyMounted}
	}
	return nil
}

func (t *Table) failed(err error) error {
	t.logger.Warn("Mount failed", zap.Error(err))
	t.metrics.RecordMount("mount", "error")
	return err
}

// resolve picks the store serving path. mountPath is empty for the base
// store; inner is the path to hand to the chosen store.
func (t *Table) resolve(path string) (store storage.Store, mountPath, inner string) {
	path = paths.Clean(path)

	t.mu.RLock()
	defer t.mu.RUnlock()

	for mp, s := range t.mounts {
		if paths.IsWithin(path, mp) && len(mp) > len(mountPath) {
			store, mountPath = s, mp
		}
	}
	if store == nil {
		return t.base, "", path
	}
	return store, mountPath, paths.Rel(path, mountPath)
}
