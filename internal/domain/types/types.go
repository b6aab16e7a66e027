// Package types contains the read shapes served by the HTTP API.
package types

import "github.com/okian/cpboard/internal/domain/model"

// Entry is one leaderboard row.
type Entry struct {
	Rank         int    `json:"rank"`
	HallTicketNo string `json:"hallTicketNo"`
	Name         string `json:"name,omitempty"`
	Branch       string `json:"branch,omitempty"`
	Section      string `json:"section,omitempty"`

	Ratings model.Ratings `json:"ratings"`

	TotalRating float64 `json:"totalRating"`
	Percentile  float64 `json:"percentile"`
}

// FromRecord projects a stored student onto an Entry. Handles stay private.
func FromRecord(rec *model.StudentRecord) Entry {
	return Entry{
		Rank:         rec.Rank,
		HallTicketNo: rec.HallTicketNo,
		Name:         rec.Name,
		Branch:       rec.Branch,
		Section:      rec.Section,
		Ratings:      rec.Ratings,
		TotalRating:  rec.TotalRating,
		Percentile:   rec.Percentile,
	}
}

// FromRecords projects records in order.
func FromRecords(recs []model.StudentRecord) []Entry {
	out := make([]Entry, len(recs))
	for i := range recs {
		out[i] = FromRecord(&recs[i])
	}
	return out
}

// RunAck answers an accepted run request.
type RunAck struct {
	RunID     string `json:"runId"`
	Cohort    string `json:"cohort"`
	Mode      string `json:"mode"`
	Platform  string `json:"platform,omitempty"`
	Coalesced bool   `json:"coalesced"`
}

// RunSummary describes the last finished run of a cohort.
type RunSummary struct {
	RunID      string   `json:"runId"`
	Mode       string   `json:"mode"`
	Students   int      `json:"students"`
	Absent     []string `json:"absent,omitempty"`
	DurationMs int64    `json:"durationMs"`
	Error      string   `json:"error,omitempty"`
	FinishedAt string   `json:"finishedAt"`
}
