package state

import "errors"

var (
	// ErrPageOutOfRange is returned when a page index does not exist.
	ErrPageOutOfRange = errors.New("page index out of range")

	// ErrObjectNotFound is returned when no object on the current page has the id.
	ErrObjectNotFound = errors.New("object not found")

	// ErrObjectLocked is returned when a locked object would be modified.
	ErrObjectLocked = errors.New("object is locked")
)
