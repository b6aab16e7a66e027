// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Platform names one rating column. The value is the persisted column name.
type Platform string

// Known platforms.
const (
	Codechef              Platform = "codechefRating"
	Codeforces            Platform = "codeforcesRating"
	GeeksforgeeksWeekly   Platform = "geeksforgeeksWeeklyRating"
	GeeksforgeeksPractice Platform = "geeksforgeeksPracticeRating"
	Leetcode              Platform = "leetcodeRating"
	Hackerrank            Platform = "hackerrankRating"
	Pyramid               Platform = "pyramidRating"
)

// Platforms lists every platform in canonical order.
var Platforms = []Platform{ //nolint:gochecknoglobals // fixed enumeration
	Codechef,
	Codeforces,
	GeeksforgeeksWeekly,
	GeeksforgeeksPractice,
	Leetcode,
	Hackerrank,
	Pyramid,
}

// ParsePlatform resolves a column name or a short platform name, case-insensitively.
// "codeforces", "codeforcesRating" and "CODEFORCESRATING" all resolve to Codeforces.
func ParsePlatform(s string) (Platform, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, p := range Platforms {
		if key == strings.ToLower(string(p)) {
			return p, nil
		}
	}
	switch key {
	case "codechef":
		return Codechef, nil
	case "codeforces":
		return Codeforces, nil
	case "gfgweekly", "geeksforgeeksweekly":
		return GeeksforgeeksWeekly, nil
	case "gfgpractice", "geeksforgeekspractice":
		return GeeksforgeeksPractice, nil
	case "leetcode":
		return Leetcode, nil
	case "hackerrank":
		return Hackerrank, nil
	case "pyramid":
		return Pyramid, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

func (p Platform) String() string { return string(p) }
