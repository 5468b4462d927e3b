package journal

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references an unknown entry id.
var ErrNotFound = errors.New("entry not found")

// ErrReadOnly is returned when an update targets a breath_analysis entry,
// which is immutable after creation.
var ErrReadOnly = errors.New("breath analysis entries are read-only")

// ValidationError reports a malformed entry shape or a duplicate id.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid entry: %s: %s", e.Field, e.Reason)
}

// StorageError reports a persistence failure. The in-memory mutation it
// would have committed has been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("journal storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
