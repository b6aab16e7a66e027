// Package repository persists cohort student records and serves ranked reads.
package repository

import (
	"context"

	"github.com/okian/cpboard/internal/domain/model"
)

// Store is the persistence collaborator of a pipeline run.
type Store interface {
	// GetAllUsers returns the cohort roster in insertion order.
	GetAllUsers(ctx context.Context, cohort string) ([]model.StudentRecord, error)

	// Upload upserts records by identifier. For a known student it replaces
	// every rating and derived column; demographic fields and handles are
	// only replaced when the incoming value is non-empty. Students not in
	// records are left untouched. Uploading the same records twice yields
	// the same stored state.
	Upload(ctx context.Context, cohort string, records []model.StudentRecord) error
}

// Ranker serves leaderboard reads ordered by Percentile DESC, identifier ASC
// with dense ranks.
type Ranker interface {
	// TopN returns the first n records. n must be positive.
	TopN(ctx context.Context, cohort string, n int) ([]model.StudentRecord, error)

	// Rank returns one student with its rank. Unknown students yield ErrNotFound.
	Rank(ctx context.Context, cohort, id string) (model.StudentRecord, error)

	// Count returns the number of students stored for the cohort.
	Count(ctx context.Context, cohort string) (int, error)
}

// Repository combines both sides plus lifecycle.
type Repository interface {
	Store
	Ranker

	// Cohorts lists the cohorts holding at least one student, sorted.
	Cohorts(ctx context.Context) ([]string, error)

	Close() error
}

// mergeRecord applies an uploaded record onto the stored one.
func mergeRecord(stored, in model.StudentRecord) model.StudentRecord {
	out := stored
	out.HallTicketNo = in.HallTicketNo
	keep(&out.Name, in.Name)
	keep(&out.Branch, in.Branch)
	keep(&out.Section, in.Section)
	keep(&out.CodechefHandle, in.CodechefHandle)
	keep(&out.CodeforcesHandle, in.CodeforcesHandle)
	keep(&out.GeeksforgeeksHandle, in.GeeksforgeeksHandle)
	keep(&out.HackerrankHandle, in.HackerrankHandle)
	keep(&out.LeetcodeHandle, in.LeetcodeHandle)

	out.Ratings = in.Ratings
	out.PyramidWeeklyRating = in.PyramidWeeklyRating
	out.PyramidMonthlyRating = in.PyramidMonthlyRating
	out.TotalRating = in.TotalRating
	out.Percentile = in.Percentile
	out.Rank = 0
	return out
}

func keep(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
