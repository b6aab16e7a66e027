package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/cpboard/internal/domain/contest"
	"github.com/okian/cpboard/internal/domain/leaderboard"
	"github.com/okian/cpboard/internal/domain/model"
	"github.com/okian/cpboard/internal/domain/scoring"
)

// Mode selects which platform tables a run rebuilds.
type Mode string

// Run modes.
const (
	// ModeFull scrapes every enabled platform and rebuilds the Pyramid rating.
	ModeFull Mode = "full"
	// ModePlatform refreshes one platform; every other column keeps its stored value.
	ModePlatform Mode = "platform"
	// ModePyramid rebuilds only the Pyramid rating from contest files.
	ModePyramid Mode = "pyramid"
)

// ParseMode parses a mode name; empty means full.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFull:
		return ModeFull, nil
	case ModePlatform, "partial":
		return ModePlatform, nil
	case ModePyramid:
		return ModePyramid, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Request describes one batch run.
type Request struct {
	RunID    string
	Cohort   string
	Mode     Mode
	Platform model.Platform // ModePlatform only

	// ExportPath, when set, receives the Pyramid tier table of the run.
	ExportPath   string
	ExportFormat string
}

// Key identifies requests that would do the same work.
func (r Request) Key() string {
	return r.Cohort + "|" + string(r.Mode) + "|" + string(r.Platform)
}

// Result summarizes a finished run.
type Result struct {
	RunID    string
	Cohort   string
	Mode     Mode
	Students int

	// RosterAdded counts remote roster students appended to the stored roster.
	RosterAdded int

	Merge   leaderboard.Report
	Tiers   []contest.TierReport
	Summary scoring.Summary

	// Refreshed lists the platforms whose column was rebuilt; Absent the ones
	// zero-filled because their source was unreachable.
	Refreshed []model.Platform
	Absent    []model.Platform

	// Records holds the scored cohort in leaderboard order with ranks set.
	Records  []model.StudentRecord
	Duration time.Duration
}
