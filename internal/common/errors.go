package common

import "errors"

var (
	// Repository-level errors. Services translate these into the typed
	// domain taxonomy; repositories stay ignorant of HTTP semantics.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")
)
