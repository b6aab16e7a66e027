// Package leaderboard left-joins platform rating tables onto a cohort roster.
package leaderboard

import (
	"github.com/okian/cpboard/internal/domain/model"
)

// Report counts what the merge dropped or collapsed.
type Report struct {
	Students        int
	DuplicateRoster int                    // roster rows collapsed onto an earlier identifier
	MissingRoster   int                    // roster rows without a usable identifier
	Unmatched       map[model.Platform]int // table identifiers not on the roster
}

// Option configures a merge.
type Option func(*merger)

type merger struct {
	tiers *model.PyramidTiers
}

// WithPyramidTiers also fills the informational weekly/monthly tier columns.
// Students missing from a tier receive 0.
func WithPyramidTiers(t model.PyramidTiers) Option {
	return func(m *merger) {
		m.tiers = &t
	}
}

// Merge returns one record per distinct roster identifier, in roster order.
//
// Each provided table overwrites its platform column: matched students get
// the table value, unmatched students get 0. Platforms without a provided
// table keep the roster's value. Duplicate identifiers within the tables
// resolve to the larger value. The roster slice is not modified.
func Merge(roster []model.StudentRecord, tables []model.PlatformTable, opts ...Option) ([]model.StudentRecord, Report) {
	m := &merger{}
	for _, opt := range opts {
		opt(m)
	}

	report := Report{Unmatched: make(map[model.Platform]int)}
	out := make([]model.StudentRecord, 0, len(roster))
	index := make(map[string]int, len(roster))

	for _, rec := range roster {
		rec.Canonicalize()
		if model.IsMissingID(rec.HallTicketNo) {
			report.MissingRoster++
			continue
		}
		if _, dup := index[rec.HallTicketNo]; dup {
			report.DuplicateRoster++
			continue
		}
		index[rec.HallTicketNo] = len(out)
		out = append(out, rec)
	}
	report.Students = len(out)

	for platform, ratings := range collapse(tables) {
		for i := range out {
			out[i].Set(platform, 0)
		}
		for id, v := range ratings {
			i, ok := index[id]
			if !ok {
				report.Unmatched[platform]++
				continue
			}
			out[i].Set(platform, v)
		}
	}

	if m.tiers != nil {
		for i := range out {
			id := out[i].HallTicketNo
			out[i].PyramidWeeklyRating = m.tiers.Weekly[id]
			out[i].PyramidMonthlyRating = m.tiers.Monthly[id]
		}
	}
	return out, report
}

// collapse canonicalizes table identifiers and folds tables of the same
// platform together, keeping the larger value per identifier.
func collapse(tables []model.PlatformTable) map[model.Platform]map[string]float64 {
	out := make(map[model.Platform]map[string]float64, len(tables))
	for _, t := range tables {
		if !t.Platform.Valid() {
			continue
		}
		dst, ok := out[t.Platform]
		if !ok {
			dst = make(map[string]float64, len(t.Ratings))
			out[t.Platform] = dst
		}
		for rawID, v := range t.Ratings {
			id := model.CanonicalID(rawID)
			if model.IsMissingID(id) {
				continue
			}
			if cur, seen := dst[id]; !seen || v > cur {
				dst[id] = v
			}
		}
	}
	return out
}
