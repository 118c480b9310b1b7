package models

import (
	"errors"
	"fmt"
)

// ErrCollectionNotFound is returned when an operation targets a collection that does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// ErrInvalidArgument marks malformed input such as an empty ID or an out-of-range limit.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrDimensionMismatch is returned when a vector's length differs from its collection's dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// StoreError wraps a vector store backend failure.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err as a StoreError. It returns nil when err is nil.
func NewStoreError(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Collection: collection, Err: err}
}

// IsCollectionNotFound reports whether err is or wraps ErrCollectionNotFound.
func IsCollectionNotFound(err error) bool {
	return errors.Is(err, ErrCollectionNotFound)
}

// IsStoreError reports whether err is or wraps a *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
