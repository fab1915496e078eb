package allocate

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
)

var (
	// ErrStorageFailure is the storage layer's failure kind, re-exported
	// for callers that only import this package.
	ErrStorageFailure = storage.ErrStorageFailure

	// ErrTooManyCollisions is returned once every suffix up to the
	// configured cap is taken.
	ErrTooManyCollisions = errors.New("allocate: too many name collisions")
)

// AllocationError reports a failed create or move. errors.Is matches both
// Kind and the underlying cause.
type AllocationError struct {
	Mode      Mode
	Name      string
	Directory string
	Kind      error
	Err       error
}

func (e *AllocationError) Error() string {
	msg := fmt.Sprintf("%s %q in %s: %v", e.Mode, e.Name, e.Directory, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AllocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
