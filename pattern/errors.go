package pattern

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned (wrapped) when a length, note or slice
// violates its invariants. The pool is left unchanged.
var ErrInvalidArgument = errors.New("invalid argument")

// MutatorError wraps the error returned by a Patch mutator. Nothing was
// committed and the version did not change.
type MutatorError struct {
	ID  ID
	Err error
}

func (e *MutatorError) Error() string {
	return fmt.Sprintf("patch pattern %d: %v", e.ID, e.Err)
}

func (e *MutatorError) Unwrap() error {
	return e.Err
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
