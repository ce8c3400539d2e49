package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation names an id that is not in the collection.
var ErrNotFound = errors.New("petition not found")

// PersistenceError means the backing file could not be read or written.
// When returned from a mutation, the in-memory state has already been rolled back.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CorruptStateError is reported through the logger when the file exists but
// cannot be parsed at startup. The store then starts empty.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt petition file %s: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }
