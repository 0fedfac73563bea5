package session

import "errors"

var (
	// ErrNotFound is returned when an operation references an absent
	// session id. Never fatal; surfaced as 404 or a structured reply.
	ErrNotFound = errors.New("session not found")

	// ErrSavedNotFound is the saved-snapshot equivalent of ErrNotFound.
	ErrSavedNotFound = errors.New("saved session not found")
)
