package storage

import (
	"context"
	"time"
)

// Entry describes a single node of a store
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

// Store is the storage adapter contract. Every call is a suspension point:
// implementations may block on I/O and must honour ctx where they do.
//
// WriteFile and Mkdir fail with ErrExist when the target is already present
// (WriteFile only when overwrite is false). Rename fails with ErrExist when
// the destination is present.
type Store interface {
	Exists(ctx context.Context, path string) (bool, error)
	Stat(ctx context.Context, path string) (Entry, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	ReadDir(ctx context.Context, path string) ([]Entry, error)
	WriteFile(ctx context.Context, path string, data []byte, overwrite bool) error
	Mkdir(ctx context.Context, path string) error
	Rename(ctx context.Context, src, dst string) error
}

// Writable is a store that can also delete and be wiped. Overlay upper
// layers must implement it.
type Writable interface {
	Store
	Remove(ctx context.Context, path string) error
	Empty(ctx context.Context) error
}

// Emptier is implemented by read-only stores that hold a cache which can be
// dropped.
type Emptier interface {
	Empty(ctx context.Context) error
}

// Closer is implemented by stores holding resources such as open databases.
type Closer interface {
	Close() error
}

// Status describes the health of a remote source behind a store
type Status struct {
	Source string `json:"source"`
	State  string `json:"state"`
}

// StatusReporter is implemented by stores that depend on a remote source.
type StatusReporter interface {
	Status() Status
}
