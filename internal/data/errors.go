package data

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique index rejects an insert.
	ErrDuplicate = errors.New("duplicate document")
	// ErrNotPending is returned when a status transition finds the request already resolved.
	ErrNotPending = errors.New("request is not pending")
)
