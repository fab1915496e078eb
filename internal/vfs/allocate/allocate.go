// Package allocate places new and moved entries under collision-free names
// and creates directory chains.
//
// A taken name "report.txt" is retried as "report (1).txt", "report (2).txt"
// and so on. Existing entries are never overwritten.
package allocate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
)

// Mode tells how an allocation places its entry
type Mode string

const (
	ModeCreate Mode = "create"
	ModeMove   Mode = "move"
)

// DefaultMaxCollisions bounds the suffix search
const DefaultMaxCollisions = 10000

// Notifier receives folder changes after successful allocations
type Notifier interface {
	Notify(folder, added, removed string)
}

// Options configure an Allocator
type Options struct {
	MaxCollisions int
	Logger        *zap.Logger
	Metrics       *monitoring.Metrics
}

// Allocator creates and moves entries without overwriting anything
type Allocator struct {
	store         storage.Store
	notifier      Notifier
	maxCollisions int
	logger        *zap.Logger
	metrics       *monitoring.Metrics
}

// New creates an allocator over store. notifier may be nil.
func New(store storage.Store, notifier Notifier, opts Options) *Allocator {
	if opts.MaxCollisions <= 0 {
		opts.MaxCollisions = DefaultMaxCollisions
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Allocator{
		store:         store,
		notifier:      notifier,
		maxCollisions: opts.MaxCollisions,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}
}

// IterateName returns the k-th candidate for name: the name itself for
// k == 0, otherwise " (k)" inserted before the extension.
func IterateName(name string, k int) string {
	if k == 0 {
		return name
	}
	stem, ext := paths.SplitExt(name)
	return fmt.Sprintf("%s (%d)%s", stem, k, ext)
}

// Allocate places an entry in directory and returns the name it got.
//
// With a nil payload and an absolute name, the entry at name is moved into
// directory. A move onto itself or into its own subtree is rejected by
// returning an empty name and no error. Otherwise a file holding payload,
// or a directory when payload is nil, is created.
func (a *Allocator) Allocate(ctx context.Context, name, directory string, payload []byte) (string, error) {
	if payload == nil && paths.IsAbs(name) {
		return a.Move(ctx, name, directory)
	}
	return a.create(ctx, name, directory, payload)
}

// CreateFile writes data to a fresh name derived from name in directory
func (a *Allocator) CreateFile(ctx context.Context, name, directory string, data []byte) (string, error) {
	if data == nil {
		data = []byte{}
	}
	return a.create(ctx, name, directory, data)
}

// CreateDirectory makes a fresh directory derived from name in directory
func (a *Allocator) CreateDirectory(ctx context.Context, name, directory string) (string, error) {
	return a.create(ctx, name, directory, nil)
}

// Move renames src into directory under a fresh name derived from its base
// name. The source folder is notified of the removal and directory of the
// addition.
func (a *Allocator) Move(ctx context.Context, src, directory string) (string, error) {
	src, directory = paths.Clean(src), paths.Clean(directory)
	base := paths.Base(src)

	if src == paths.Root || paths.Join(directory, base) == src || paths.IsWithin(directory, src) {
		a.logger.Debug("Move rejected",
			zap.String("src", src),
			zap.String("directory", directory))
		a.metrics.RecordAllocation(string(ModeMove), "rejected")
		return "", nil
	}

	for k := 0; k <= a.maxCollisions; k++ {
		candidate := IterateName(base, k)
		target := paths.Join(directory, candidate)

		exists, err := a.store.Exists(ctx, target)
		if err != nil {
			return "", a.failed(ModeMove, src, directory, ErrStorageFailure, err)
		}
		if exists {
			a.collided(ModeMove, target)
			continue
		}

		err = a.store.Rename(ctx, src, target)
		if storage.IsExist(err) {
			// Taken between the existence check and the rename
			a.collided(ModeMove, target)
			continue
		}
		if err != nil {
			return "", a.failed(ModeMove, src, directory, ErrStorageFailure, err)
		}

		a.notify(paths.Dir(src), "", base)
		a.notify(directory, candidate, "")
		a.metrics.RecordAllocation(string(ModeMove), "success")
		return candidate, nil
	}
	return "", a.failed(ModeMove, src, directory, ErrTooManyCollisions, nil)
}

func (a *Allocator) create(ctx context.Context, name, directory string, payload []byte) (string, error) {
	directory = paths.Clean(directory)
	if err := paths.ValidateName(name); err != nil {
		return "", a.failed(ModeCreate, name, directory, storage.ErrInvalid, err)
	}

	for k := 0; k <= a.maxCollisions; k++ {
		candidate := IterateName(name, k)
		target := paths.Join(directory, candidate)

		var err error
		if payload != nil {
			err = a.store.WriteFile(ctx, target, payload, false)
		} else {
			err = a.store.Mkdir(ctx, target)
		}
		if storage.IsExist(err) {
			a.collided(ModeCreate, target)
			continue
		}
		if err != nil {
			return "", a.failed(ModeCreate, name, directory, ErrStorageFailure, err)
		}

		a.notify(directory, candidate, "")
		a.metrics.RecordAllocation(string(ModeCreate), "success")
		return candidate, nil
	}
	return "", a.failed(ModeCreate, name, directory, ErrTooManyCollisions, nil)
}

func (a *Allocator) notify(folder, added, removed string) {
	if a.notifier != nil {
		a.notifier.Notify(folder, added, removed)
	}
}

func (a *Allocator) collided(mode Mode, target string) {
	a.logger.Debug("Name collision",
		zap.String("mode", string(mode)),
		zap.String("target", target))
	a.metrics.IncCollisions()
}

func (a *Allocator) failed(mode Mode, name, directory string, kind, err error) error {
	allocErr := &AllocationError{Mode: mode, Name: name, Directory: directory, Kind: kind, Err: err}
	a.logger.Warn("Allocation failed", zap.Error(allocErr))
	a.metrics.RecordAllocation(string(mode), "error")
	return allocErr
}
