package model

import "errors"

// Error kinds shared by every package. Callers wrap them with fmt.Errorf and
// "%w" so handlers can map them with errors.Is.
var (
	// ErrValidation marks malformed or incomplete input. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced property or image that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrProcessing marks image derivation failures and malformed responses
	// from the generative endpoint.
	ErrProcessing = errors.New("processing failed")

	// ErrConflict marks a write that collides with an existing record, such
	// as an image ordinal already taken for the property.
	ErrConflict = errors.New("conflict")
)
