// Package contest turns Pyramid contest result files into per-tier scores and
// composes the tiers into one pyramidRating.
package contest

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/okian/cpboard/internal/domain/model"
)

const (
	defaultHeaderTolerance = 1
	// Shorter headers are only matched exactly; one edit on "htno" is another word.
	minFuzzyHeaderRunes = 8
)

// idHeaders are the accepted identifier column headers, already normalized.
var idHeaders = []string{ //nolint:gochecknoglobals // fixed vocabulary
	"hall ticket number",
	"hall ticket no",
	"hall ticket no.",
	"hallticketno",
	"hall ticket",
	"htno",
	"roll number",
	"roll no",
	"roll no.",
}

// RowReader reads a tabular file into rows of cells.
type RowReader interface {
	ReadRows(ctx context.Context, path string) ([][]string, error)
}

// FileResult is the outcome of ingesting one contest file.
type FileResult struct {
	Path        string
	IDHeader    string
	ScoreHeader string
	Entries     []model.ContestEntry
	Dropped     int // rows without a usable identifier
	Malformed   int // scores that defaulted to zero
}

// Ingestor extracts (identifier, score) pairs from contest files.
type Ingestor struct {
	reader    RowReader
	tolerance int
}

// NewIngestor creates an Ingestor reading files through reader.
func NewIngestor(reader RowReader, opts ...IngestorOption) *Ingestor {
	in := &Ingestor{reader: reader, tolerance: defaultHeaderTolerance}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest reads one file. It fails with ErrUnreadableFile or ErrMissingColumn;
// malformed scores and missing identifiers are only counted.
func (in *Ingestor) Ingest(ctx context.Context, path string) (FileResult, error) {
	res := FileResult{Path: path}

	rows, err := in.reader.ReadRows(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, fmt.Errorf("%w: %s: %v", ErrUnreadableFile, path, err)
	}

	headerIdx := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return res, fmt.Errorf("%w: %s: no header row", ErrMissingColumn, path)
	}
	header := rows[headerIdx]

	idCol := in.identifierColumn(header)
	if idCol < 0 {
		return res, fmt.Errorf("%w: %s: hall ticket column", ErrMissingColumn, path)
	}
	scoreCol := scoreColumn(header, idCol)
	if scoreCol < 0 {
		return res, fmt.Errorf("%w: %s: score column", ErrMissingColumn, path)
	}
	res.IDHeader = header[idCol]
	res.ScoreHeader = header[scoreCol]

	res.Entries = make([]model.ContestEntry, 0, len(rows)-headerIdx-1)
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if blankRow(row) {
			continue
		}
		id := model.CanonicalID(cell(row, idCol))
		if model.IsMissingID(id) {
			res.Dropped++
			continue
		}
		score, ok := ParseScore(cell(row, scoreCol))
		if !ok {
			res.Malformed++
		}
		res.Entries = append(res.Entries, model.ContestEntry{
			ID:     id,
			Score:  score,
			Source: path,
			Row:    i + 1,
		})
	}
	return res, nil
}

func (in *Ingestor) identifierColumn(header []string) int {
	return IdentifierColumn(header, in.tolerance)
}

// IdentifierColumn returns the index of the identifier column in header, or
// -1. Headers of 8+ runes may differ from a known variant by up to tolerance
// edits.
func IdentifierColumn(header []string, tolerance int) int {
	norm := make([]string, len(header))
	for i, h := range header {
		norm[i] = NormalizeHeader(h)
	}
	for i, h := range norm {
		if isIDHeader(h) {
			return i
		}
	}
	if tolerance <= 0 {
		return -1
	}
	best, bestDist := -1, tolerance+1
	for i, h := range norm {
		if utf8.RuneCountInString(h) < minFuzzyHeaderRunes {
			continue
		}
		for _, v := range idHeaders {
			if utf8.RuneCountInString(v) < minFuzzyHeaderRunes {
				continue
			}
			if d := levenshtein.ComputeDistance(h, v); d < bestDist {
				best, bestDist = i, d
			}
		}
	}
	return best
}

func isIDHeader(h string) bool {
	compact := strings.ReplaceAll(h, " ", "")
	for _, v := range idHeaders {
		if h == v || compact == strings.ReplaceAll(v, " ", "") {
			return true
		}
	}
	return false
}

// scoreColumn picks the first header containing "score", preferring one that
// also contains "total".
func scoreColumn(header []string, skip int) int {
	first := -1
	for i, h := range header {
		if i == skip {
			continue
		}
		n := NormalizeHeader(h)
		if !strings.Contains(n, "score") {
			continue
		}
		if strings.Contains(n, "total") {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

// NormalizeHeader folds case and collapses whitespace.
func NormalizeHeader(h string) string {
	return strings.Join(strings.Fields(cases.Fold().String(h)), " ")
}

// ParseScore parses a score cell. Thousands separators are ignored. Empty,
// unparseable, non-finite and negative values yield (0, false).
func ParseScore(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
