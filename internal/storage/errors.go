package storage

import (
	"errors"
	"fmt"
)

// Standard errors that stores use
var (
	ErrExist       = errors.New("storage: file already exists")
	ErrNotExist    = errors.New("storage: file does not exist")
	ErrNotDir      = errors.New("storage: not a directory")
	ErrIsDir       = errors.New("storage: is a directory")
	ErrReadOnly    = errors.New("storage: read-only file system")
	ErrCrossDevice = errors.New("storage: cross-device rename")
	ErrInvalid     = errors.New("storage: invalid argument")

	// ErrStorageFailure marks a failure surfaced by the coordination layer
	// on behalf of a store.
	ErrStorageFailure = errors.New("storage failure")
)

// OpError records a failed store operation and the path it touched
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Failure wraps err as a storage failure of op on path. errors.Is matches
// both ErrStorageFailure and the underlying cause.
func Failure(op, path string, err error) error {
	return &OpError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", ErrStorageFailure, err)}
}

func opErr(op, path string, err error) error {
	return &OpError{Op: op, Path: path, Err: err}
}

// IsExist reports whether err signals an existing entry
func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}

// IsNotExist reports whether err signals a missing entry
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}
