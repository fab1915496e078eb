// Package vfs is the session-owned file system service.
//
// Manager composes the mount table, the watcher registry, the path
// allocator, the paste intent tracker and the lifecycle coordinator over a
// single base store. Every operation that changes a folder notifies its
// watchers through the registry.
package vfs

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs/allocate"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs/lifecycle"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs/mount"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs/paste"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs/watch"
)

// Base is the store under every mount. Reset empties it.
type Base interface {
	storage.Store
	Empty(ctx context.Context) error
}

// Options configure a Manager
type Options struct {
	TempPath        string
	MaxCollisions   int
	PinnedMounts    []string
	SeedDirectories []string
	Logger          *zap.Logger
	Metrics         *monitoring.Metrics
}

// Manager is the file system service
type Manager struct {
	base      Base
	table     *mount.Table
	watchers  *watch.Registry
	allocator *allocate.Allocator
	paste     *paste.Tracker
	lifecycle *lifecycle.Coordinator

	tempPath string
	seed     []string
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a manager over base and creates the seed directories
func New(ctx context.Context, base Base, opts Options) (*Manager, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TempPath == "" {
		opts.TempPath = paths.Temp
	}

	table := mount.NewTable(base, opts.Logger.Named("mount"), opts.Metrics)
	watchers := watch.NewRegistry(opts.Logger.Named("watch"), opts.Metrics)
	coordinator, err := lifecycle.New(table, watchers, lifecycle.Options{
		Pinned:  opts.PinnedMounts,
		Logger:  opts.Logger.Named("lifecycle"),
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	m := &Manager{
		base:     base,
		table:    table,
		watchers: watchers,
		allocator: allocate.New(table, watchers, allocate.Options{
			MaxCollisions: opts.MaxCollisions,
			Logger:        opts.Logger.Named("allocate"),
			Metrics:       opts.Metrics,
		}),
		paste:     paste.NewTracker(),
		lifecycle: coordinator,
		tempPath:  paths.Clean(opts.TempPath),
		seed:      opts.SeedDirectories,
		logger:    opts.Logger,
	}

	if err := m.seedDirectories(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Start runs the lifecycle coordinator in the background until Close
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		_ = m.lifecycle.Run(ctx)
	}()
	m.logger.Info("File system manager started", zap.String("temp", m.tempPath))
}

// Close stops the background coordinator and releases the base store
func (m *Manager) Close() error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if closer, ok := m.base.(storage.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Store returns the merged tree: the base store with every mount grafted
func (m *Manager) Store() storage.Store {
	return m.table
}

// SourceStatus reports the health of the base store's lower layer when it
// depends on a remote source
func (m *Manager) SourceStatus() (storage.Status, bool) {
	layered, ok := m.base.(interface {
		Layers() (storage.Writable, storage.Store)
	})
	if !ok {
		return storage.Status{}, false
	}
	_, lower := layered.Layers()
	reporter, ok := lower.(storage.StatusReporter)
	if !ok {
		return storage.Status{}, false
	}
	return reporter.Status(), true
}

// TempPath returns the directory dropped files land in
func (m *Manager) TempPath() string {
	return m.tempPath
}

// Mount grafts the archive image stored at path onto path
func (m *Manager) Mount(ctx context.Context, path string) error {
	return m.table.Mount(ctx, path)
}

// MountImage grafts a caller-supplied archive image onto path
func (m *Manager) MountImage(ctx context.Context, path string, image []byte) error {
	return m.table.MountImage(ctx, path, image)
}

// Unmount removes the mount at path, if any
func (m *Manager) Unmount(path string) bool {
	return m.table.Unmount(path)
}

// IsMounted reports whether an archive is mounted at path
func (m *Manager) IsMounted(path string) bool {
	return m.table.IsMounted(path)
}

// Mounts lists the mounted archives
func (m *Manager) Mounts() []mount.Info {
	return m.table.Mounts()
}

// Reconcile runs one lifecycle pass immediately
func (m *Manager) Reconcile(ctx context.Context) []string {
	return m.lifecycle.Reconcile(ctx)
}

// Subscribe registers listener for changes in folder
func (m *Manager) Subscribe(folder string, listener watch.Listener) {
	m.watchers.Subscribe(folder, listener)
}

// Unsubscribe removes one registration of listener from folder
func (m *Manager) Unsubscribe(folder string, listener watch.Listener) bool {
	return m.watchers.Unsubscribe(folder, listener)
}

// WatchedFolders lists folders with at least one listener
func (m *Manager) WatchedFolders() []string {
	return m.watchers.Folders()
}

// UpdateFolder notifies watchers that added and/or removed changed in folder
func (m *Manager) UpdateFolder(folder, added, removed string) {
	m.watchers.Notify(folder, added, removed)
}

// CreatePath creates or moves an entry under a collision-free name. See
// allocate.Allocator.Allocate for how name and payload select the mode.
func (m *Manager) CreatePath(ctx context.Context, name, directory string, payload []byte) (string, error) {
	return m.allocator.Allocate(ctx, name, directory, payload)
}

// CreateFile writes data under a collision-free name in directory
func (m *Manager) CreateFile(ctx context.Context, name, directory string, data []byte) (string, error) {
	return m.allocator.CreateFile(ctx, name, directory, data)
}

// CreateDirectory makes a directory under a collision-free name
func (m *Manager) CreateDirectory(ctx context.Context, name, directory string) (string, error) {
	return m.allocator.CreateDirectory(ctx, name, directory)
}

// Move moves src into directory under a collision-free name. An empty name
// with a nil error means the move was rejected.
func (m *Manager) Move(ctx context.Context, src, directory string) (string, error) {
	return m.allocator.Move(ctx, src, directory)
}

// MkdirRecursive creates every missing directory along path
func (m *Manager) MkdirRecursive(ctx context.Context, path string) error {
	return m.allocator.EnsureDirectory(ctx, path)
}

// CopyEntries replaces the paste intent with a copy of entries
func (m *Manager) CopyEntries(entries []string) {
	m.paste.Copy(entries)
}

// MoveEntries replaces the paste intent with a move of entries
func (m *Manager) MoveEntries(entries []string) {
	m.paste.Move(entries)
}

// SetPasteIntent replaces the paste intent
func (m *Manager) SetPasteIntent(entries []string, kind paste.Kind) {
	m.paste.SetIntent(entries, kind)
}

// PasteIntent returns the current paste intent
func (m *Manager) PasteIntent() map[string]paste.Kind {
	return m.paste.Snapshot()
}

// IntentFor returns the pending paste kind for path
func (m *Manager) IntentFor(path string) paste.Kind {
	return m.paste.IntentFor(path)
}

// DropFile stores data as name in the temp directory, replacing any file of
// that name, and returns the full path
func (m *Manager) DropFile(ctx context.Context, name string, data []byte) (string, error) {
	if err := paths.ValidateName(name); err != nil {
		return "", fmt.Errorf("%w: %w", storage.ErrInvalid, err)
	}
	if err := m.MkdirRecursive(ctx, m.tempPath); err != nil {
		return "", err
	}

	target := paths.Join(m.tempPath, name)
	if err := m.table.WriteFile(ctx, target, data, true); err != nil {
		return "", storage.Failure("drop", target, err)
	}

	m.logger.Debug("File dropped", zap.String("path", target), zap.Int("size", len(data)))
	m.UpdateFolder(m.tempPath, name, "")
	return target, nil
}

// Reset unmounts every archive, empties the base store and recreates the
// seed directories. Every watched folder is told to refresh.
func (m *Manager) Reset(ctx context.Context) error {
	for _, mp := range m.table.MountPoints() {
		m.table.Unmount(mp)
	}
	if err := m.base.Empty(ctx); err != nil {
		return storage.Failure("reset", paths.Root, err)
	}
	if err := m.seedDirectories(ctx); err != nil {
		return err
	}

	m.logger.Info("File system reset")
	for _, folder := range m.watchers.Folders() {
		m.watchers.Notify(folder, "", "")
	}
	return nil
}

func (m *Manager) seedDirectories(ctx context.Context) error {
	for _, dir := range m.seed {
		if err := allocate.EnsureDirectory(ctx, m.table, dir); err != nil {
			return err
		}
	}
	return nil
}
