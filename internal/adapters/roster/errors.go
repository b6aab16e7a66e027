package roster

import "errors"

var (
	// ErrUnreachableSource is returned when the published roster could not be fetched.
	ErrUnreachableSource = errors.New("roster source unreachable")

	// ErrMissingColumn is returned when no identifier column is found.
	ErrMissingColumn = errors.New("roster has no identifier column")
)
