package store

import "errors"

// Sentinel error kinds. Store implementations wrap these with %w so
// callers can test with errors.Is rather than string matching.
var (
	ErrNotFound  = errors.New("store: not found")
	ErrConflict  = errors.New("store: conflict")
	ErrSchema    = errors.New("store: schema error")
	ErrTransport = errors.New("store: transport error")
)
