// Package sentinel defines the error values stores return at their boundary.
// Stores wrap them with context (fmt.Errorf("user not found: %w", ErrNotFound))
// and services branch on them with errors.Is.
package sentinel

import "errors"

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound    = errors.New("not found")
	// ErrAlreadyUsed means a uniqueness constraint rejected the write.
	ErrAlreadyUsed = errors.New("already used")
	// ErrConflict means a concurrent writer won.
	ErrConflict    = errors.New("conflict")

	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidState = errors.New("invalid state")
)
