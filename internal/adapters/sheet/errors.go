package sheet

import "errors"

// Sentinel errors for tabular file access.
var (
	ErrUnsupportedFormat = errors.New("unsupported tabular file format")
	ErrNoSheet           = errors.New("workbook has no sheets")
	ErrCorruptWorkbook   = errors.New("corrupt legacy workbook")
)
