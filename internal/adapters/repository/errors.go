package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("student not found")
	ErrInvalidLimit  = errors.New("invalid leaderboard limit")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrInvalidRecord = errors.New("invalid student record")
)
