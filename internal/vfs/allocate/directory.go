package allocate

import (
	"context"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
)

// EnsureDirectory creates every missing directory along path, root first.
// Prefixes that already exist are left alone, so a fully existing path
// performs no writes. The first failure aborts the walk and is reported as
// a storage failure naming the prefix being created.
func EnsureDirectory(ctx context.Context, store storage.Store, path string) error {
	prefix := paths.Root
	for _, segment := range paths.Segments(path) {
		prefix = paths.Join(prefix, segment)

		exists, err := store.Exists(ctx, prefix)
		if err != nil {
			return storage.Failure("ensure", prefix, err)
		}
		if exists {
			continue
		}
		if err := store.Mkdir(ctx, prefix); err != nil {
			return storage.Failure("ensure", prefix, err)
		}
	}
	return nil
}

// EnsureDirectory creates every missing directory along path in the
// allocator's store
func (a *Allocator) EnsureDirectory(ctx context.Context, path string) error {
	if err := EnsureDirectory(ctx, a.store, path); err != nil {
		a.logger.Warn("Directory creation failed", zap.String("path", path), zap.Error(err))
		return err
	}
	return nil
}
