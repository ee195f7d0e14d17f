package goresource

import "errors"

var (
	// ErrNotFound is the client-facing "entity or cursor does not exist"
	// condition. Handlers map it to HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCursor is returned for any malformed page token: bad base64,
	// bad query string, non-numeric offset. It wraps ErrNotFound so callers
	// only ever need to check one error kind for "give me a fresh cursor".
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrConflict is returned when a create or update violates a uniqueness
	// constraint. Handlers map it to HTTP 409.
	ErrConflict = errors.New("conflict")

	// ErrInvalidFilter is returned when a list request filters on a column
	// that does not exist on the model. Handlers map it to HTTP 400.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidOrdering is a configuration error: the ordering argument has
	// the wrong type, or no entry survives validation. It is raised at
	// construction and should abort service registration, not be caught.
	ErrInvalidOrdering = errors.New("invalid ordering")
)

// invalidCursor wraps both ErrInvalidCursor and ErrNotFound, keeping a
// single stable error signature for every token parse failure.
type invalidCursorError struct {
	reason string
}

func (e *invalidCursorError) Error() string {
	return "invalid cursor: " + e.reason
}

func (e *invalidCursorError) Is(target error) bool {
	return target == ErrInvalidCursor || target == ErrNotFound
}

func errInvalidCursor(reason string) error {
	return &invalidCursorError{reason: reason}
}
