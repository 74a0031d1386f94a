// Package apperr defines sentinel errors shared across package boundaries.
package apperr

import "errors"

var (
	// ErrNotFound signals that a requested article or file does not exist.
	ErrNotFound = errors.New("not found")
)
