package domain

import "errors"

// Sentinel errors shared by every layer. Wrap them with fmt.Errorf("...: %w")
// and compare with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrStorage         = errors.New("storage failure")

	// ErrConflict reports a primary-key collision on insert.
	ErrConflict = errors.New("already exists")
)
