package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CanonicalID trims surrounding whitespace and upper-cases an identifier.
// Every join between the roster, contest files and platform tables uses this form.
func CanonicalID(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	// Casers are stateful; one per call keeps this safe for concurrent use.
	return cases.Upper(language.Und).String(s)
}

// IsMissingID reports whether a canonical identifier carries no value: empty,
// or one of the literals spreadsheets emit for blank cells.
func IsMissingID(id string) bool {
	switch id {
	case "", "NAN", "NONE", "NULL", "<NA>", "N/A":
		return true
	}
	return false
}
