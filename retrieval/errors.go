package retrieval

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyStore is returned when querying a store that holds no chunks.
	ErrEmptyStore = errors.New("chunk store is empty")
	// ErrUninitialized is returned when no store has been published yet.
	ErrUninitialized = errors.New("chunk store not initialized")
	// ErrDimensionMismatch is returned when vector lengths disagree.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNoRelevantContent signals that no result met the similarity threshold.
	// It is an outcome, not a failure.
	ErrNoRelevantContent = errors.New("no relevant content found")
	// ErrInvalidThreshold is returned for thresholds outside [0, 1].
	ErrInvalidThreshold = errors.New("similarity threshold must be within [0, 1]")
	// ErrNoSnapshot is returned by persisters when nothing has been saved yet.
	ErrNoSnapshot = errors.New("no persisted index")
)

// Error reports a retrieval failure for a specific operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("retrieval %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
