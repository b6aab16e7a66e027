package contest

import "errors"

// Sentinel errors. None of them aborts a run: files and directories that fail
// are reported and contribute nothing.
var (
	ErrMissingColumn    = errors.New("missing required column")
	ErrMissingDirectory = errors.New("contest directory not found")
	ErrUnreadableFile   = errors.New("unreadable contest file")
	ErrMalformedScore   = errors.New("malformed score")
	ErrUnknownPolicy    = errors.New("unknown combination policy")
	ErrDuplicateFile    = errors.New("duplicate contest file")
)
