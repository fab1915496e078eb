// Package lifecycle unmounts archives that no watcher is looking at.
//
// A mount survives a pass while some watched folder equals the mount point
// or lies beneath it, or while the mount point matches a pinned glob.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
)

// Mounts is the part of the mount table the coordinator drives
type Mounts interface {
	MountPoints() []string
	Unmount(path string) bool
}

// Watchers is the part of the watcher registry the coordinator observes
type Watchers interface {
	Folders() []string
	KeysChanged() <-chan struct{}
}

// Options configure a Coordinator
type Options struct {
	// Pinned holds doublestar globs of mount points that are never
	// unmounted
	Pinned  []string
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// Coordinator reconciles mounts against watched folders
type Coordinator struct {
	mounts   Mounts
	watchers Watchers
	pinned   []string
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// New creates a coordinator. It fails on a malformed pinned pattern.
func New(mounts Mounts, watchers Watchers, opts Options) (*Coordinator, error) {
	for _, pattern := range opts.Pinned {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pinned mount pattern %q", pattern)
		}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Coordinator{
		mounts:   mounts,
		watchers: watchers,
		pinned:   opts.Pinned,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}, nil
}

// Reconcile runs one pass and returns the mount points it unmounted
func (c *Coordinator) Reconcile(ctx context.Context) []string {
	folders := c.watchers.Folders()

	var unmounted []string
	for _, mp := range c.mounts.MountPoints() {
		if mp == paths.Root || c.isPinned(mp) || observed(mp, folders) {
			continue
		}
		if c.mounts.Unmount(mp) {
			unmounted = append(unmounted, mp)
			c.metrics.IncLifecycleUnmounts()
		}
	}

	if len(unmounted) > 0 {
		c.logger.Info("Unmounted unobserved archives",
			zap.Strings("mounts", unmounted),
			zap.Int("watched", len(folders)))
	}
	return unmounted
}

// Run reconciles after every change to the set of watched folders until
// ctx ends
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.watchers.KeysChanged():
			c.Reconcile(ctx)
		}
	}
}

func (c *Coordinator) isPinned(mountPoint string) bool {
	for _, pattern := range c.pinned {
		if ok, _ := doublestar.Match(pattern, mountPoint); ok {
			return true
		}
	}
	return false
}

func observed(mountPoint string, folders []string) bool {
	for _, f := range folders {
		if paths.IsWithin(f, mountPoint) {
			return true
		}
	}
	return false
}
