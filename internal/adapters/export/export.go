// Package export writes pyramid and leaderboard tables to .xlsx or .csv files.
package export

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/okian/cpboard/internal/adapters/sheet"
	"github.com/okian/cpboard/internal/domain/contest"
	"github.com/okian/cpboard/internal/domain/model"
)

// Sheet names used in workbooks.
const (
	PyramidSheet     = "pyramid"
	LeaderboardSheet = "leaderboard"
)

// PyramidHeader is the column order of a pyramid export.
var PyramidHeader = []string{ //nolint:gochecknoglobals // fixed layout
	"hallTicketNo", "pyramidWeeklyRating", "pyramidMonthlyRating", string(model.Pyramid),
}

// FormatFor resolves the output format from an explicit name or, when empty,
// from the path extension.
func FormatFor(path, explicit string) (sheet.Format, error) {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case "":
		return sheet.FormatOf(path)
	case "xlsx":
		return sheet.XLSX, nil
	case "csv":
		return sheet.CSV, nil
	}
	return "", fmt.Errorf("%w: %s", sheet.ErrUnsupportedFormat, explicit)
}

// Pyramid writes one row per identifier of the composition, sorted by identifier.
func Pyramid(ctx context.Context, path string, format sheet.Format, c contest.Composition) error {
	ids := make([]string, 0, len(c.Table.Ratings))
	for id := range c.Table.Ratings {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]any, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []any{id, c.Tiers.Weekly[id], c.Tiers.Monthly[id], c.Table.Ratings[id]})
	}
	if err := sheet.Write(ctx, path, format, PyramidSheet, PyramidHeader, rows); err != nil {
		return fmt.Errorf("write pyramid export: %w", err)
	}
	return nil
}

// LeaderboardHeader returns the column order of a leaderboard export.
func LeaderboardHeader() []string {
	h := []string{"Rank", "hallTicketNo", "name", "branch", "section"}
	for _, p := range model.Platforms {
		h = append(h, string(p))
	}
	return append(h, "pyramidWeeklyRating", "pyramidMonthlyRating", "TotalRating", "Percentile")
}

// Leaderboard writes records in the given order; callers pass them ranked.
func Leaderboard(ctx context.Context, path string, format sheet.Format, records []model.StudentRecord) error {
	rows := make([][]any, 0, len(records))
	for i := range records {
		r := &records[i]
		row := []any{r.Rank, r.HallTicketNo, r.Name, r.Branch, r.Section}
		for _, p := range model.Platforms {
			row = append(row, r.Get(p))
		}
		row = append(row, r.PyramidWeeklyRating, r.PyramidMonthlyRating, r.TotalRating, r.Percentile)
		rows = append(rows, row)
	}
	if err := sheet.Write(ctx, path, format, LeaderboardSheet, LeaderboardHeader(), rows); err != nil {
		return fmt.Errorf("write leaderboard export: %w", err)
	}
	return nil
}
