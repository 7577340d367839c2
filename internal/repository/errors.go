package repository

import "errors"

// Sentinel errors shared by every store implementation.  Services match
// them with errors.Is and never look at driver errors.
var (
	// ErrNotFound is returned when a lookup by key matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write violates a unique key.
	ErrDuplicate = errors.New("duplicate")
	// ErrConflict is returned when a write cannot be performed because of
	// conflicting state: a conditional update matched no row, or a delete
	// is blocked by dependent rows.
	ErrConflict = errors.New("conflict")
	// ErrMissingReference is returned when a foreign key points at a row
	// that does not exist.
	ErrMissingReference = errors.New("missing reference")
)
