package storage

import "errors"

// Common storage errors
var (
	// ErrDocumentNotFound indicates that document does not exist in the collection
	ErrDocumentNotFound = errors.New("document not found")

	// ErrVersionConflict indicates that atomic put lost a race:
	// the stored version no longer matches the expected prior version
	ErrVersionConflict = errors.New("document version conflict")

	// ErrConflictNotFound indicates that conflict record was not found
	ErrConflictNotFound = errors.New("conflict record not found")

	// ErrUnavailable indicates that the store cannot serve requests at all
	ErrUnavailable = errors.New("store unavailable")

	// ErrTransient indicates a store failure that may succeed on retry
	ErrTransient = errors.New("transient store error")
)
