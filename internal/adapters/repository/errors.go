package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound = errors.New("queue item not found")
	ErrExists   = errors.New("queue item already exists")
	ErrConflict = errors.New("queue item status changed concurrently")
	ErrIllegal  = errors.New("illegal queue state transition")
)
