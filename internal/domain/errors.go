package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a write lost to a concurrent or duplicate write.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput indicates the caller supplied data that fails validation.
	ErrInvalidInput = errors.New("invalid input")
)
