package mount

import (
	"errors"
	"fmt"
)

// Mount error kinds
var (
	ErrUnreadable       = errors.New("mount: archive unreadable")
	ErrSourceReadFailed = errors.New("mount: image read failed")
	ErrAlreadyMounted   = errors.New("mount: already mounted")
	ErrRootMount        = errors.New("mount: cannot mount at root")
)

// Error reports a failed mount. errors.Is matches both Kind and the
// underlying cause.
type Error struct {
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
