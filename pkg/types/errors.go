package types

import (
	"errors"
	"strings"
)

// ErrReportNotFound is the empty-result outcome of a lookup by id.
var ErrReportNotFound = errors.New("report not found")

// ValidationError enumerates every violation found in a save call. When it is
// returned, no write has happened.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, ", ")
}

// PersistenceError means a write failed after validation passed. The
// transaction was rolled back; no partial state is visible.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "persistence: " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// CorruptDataError means a stored JSON list column no longer decodes. It is
// surfaced to the caller rather than masked as an empty list.
type CorruptDataError struct {
	Err error
}

func (e *CorruptDataError) Error() string {
	return "corrupt stored data: " + e.Err.Error()
}

func (e *CorruptDataError) Unwrap() error {
	return e.Err
}
