package library

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying engine failures. Validation and conflict errors
// are rejected before any mutation; persistence errors abort the enclosing
// unit of work.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("name conflict")
	ErrNotFound   = errors.New("not found")
	ErrCycle      = errors.New("hierarchy cycle")
)

// NameConflictError reports a rename or create that would collide with an
// existing primary name. ConflictID identifies the colliding row so the
// caller can offer merge/move/cancel.
type NameConflictError struct {
	Name       string
	ConflictID int64
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("name %q already belongs to id %d", e.Name, e.ConflictID)
}

func (e *NameConflictError) Is(target error) bool {
	return target == ErrConflict
}
