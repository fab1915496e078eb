// Package storage defines the asynchronous storage adapter consumed by the
// virtual file tree and the backing stores that implement it.
//
// Stores:
//   - Memory: map-backed writable store, used in tests and as the default
//     writable layer when no database directory is configured
//   - Badger: persistent writable store on BadgerDB
//   - HostDir: read-only view of a host directory
//   - HTTP: read-only tree served from a static web root and JSON index;
//     body fetches go through a circuit breaker
//   - Overlay: writable layer stacked over a read-only layer; the base of
//     the unified tree
//
// Archive stores live in the archive subpackage. All stores speak clean,
// absolute, slash-separated paths (see internal/shared/paths).
package storage
