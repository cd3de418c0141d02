package repositories

import "errors"

var (
	// ErrNotFound is returned when a task or vehicle ID does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned for duplicate IDs and for status changes the
	// lifecycle does not allow from the stored state.
	ErrConflict = errors.New("conflict")
)
