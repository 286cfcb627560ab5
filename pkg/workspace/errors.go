package workspace

import "errors"

var (
	// ErrValidation is returned when input is rejected before any mutation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a path or id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when a create or rename collides with an
	// existing file.
	ErrDuplicateName = errors.New("duplicate name")
)
