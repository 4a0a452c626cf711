package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("report not found")
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrClosed         = errors.New("store closed")
)
