// Package roster reads cohort rosters from a published CSV or a local sheet.
package roster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/cpboard/internal/adapters/retry"
	"github.com/okian/cpboard/internal/adapters/sheet"
	"github.com/okian/cpboard/internal/domain/contest"
	"github.com/okian/cpboard/internal/domain/model"
)

const (
	defaultTimeout  = 15 * time.Second
	headerTolerance = 1
)

// Source fetches rosters. Concurrent fetches of the same URL share one request.
type Source struct {
	http      *http.Client
	reader    *sheet.Reader
	retry     retry.Config
	userAgent string
	group     singleflight.Group
}

// New constructs a Source.
func New(opts ...Option) *Source {
	s := &Source{
		http:      &http.Client{Timeout: defaultTimeout},
		reader:    sheet.NewReader(),
		retry: retry.Config{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    10 * time.Second,
		},
		userAgent: "cpboard/1.0",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads the CSV published at url and parses it. The shared
// download outlives any one caller's ctx; a caller whose ctx ends stops
// waiting without cancelling it for the others.
func (s *Source) Fetch(ctx context.Context, url string) ([]model.StudentRecord, error) {
	ch := s.group.DoChan(url, func() (any, error) {
		fctx, cancel := s.flightContext(ctx)
		defer cancel()
		raw, err := s.download(fctx, url)
		if err != nil {
			return nil, err
		}
		rows, err := s.reader.ReadCSV(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse roster: %w", err)
		}
		return FromRows(rows)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Callers sharing a flight must not see each other's mutations.
		shared := res.Val.([]model.StudentRecord)
		return append([]model.StudentRecord(nil), shared...), nil
	}
}

// flightContext detaches ctx from its caller and bounds it by the longest a
// download can take: every attempt timing out plus the backoff between them.
func (s *Source) flightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if s.http.Timeout <= 0 {
		return context.WithCancel(detached)
	}
	n := s.retry.Attempts()
	budget := time.Duration(n) * s.http.Timeout
	steady := s.retry
	steady.JitterPercent = 0
	for i := 0; i < n-1; i++ {
		budget += time.Duration(float64(steady.Delay(i)) * (1 + s.retry.JitterPercent))
	}
	return context.WithTimeout(detached, budget)
}

// Load reads a roster from a local .xlsx/.xls/.csv file.
func (s *Source) Load(ctx context.Context, path string) ([]model.StudentRecord, error) {
	rows, err := s.reader.ReadRows(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	return FromRows(rows)
}

func (s *Source) download(ctx context.Context, url string) ([]byte, error) {
	var raw []byte
	permanent := false
	_, err := retry.Do(ctx, s.retry,
		func(error) bool { return !permanent },
		func(ctx context.Context) error {
			var err error
			raw, permanent, err = s.get(ctx, url)
			return err
		})
	if err == nil {
		return raw, nil
	}
	if errors.Is(err, context.Canceled) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrUnreachableSource, url, err)
}

// get makes one request. The bool reports a failure not worth retrying.
func (s *Source) get(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, true, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/csv")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
		return nil, !transient, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read body: %w", err)
	}
	return raw, false, nil
}

// column recognizers keyed by the field they fill.
var columnMatchers = []struct {
	set   func(r *model.StudentRecord, v string)
	match func(h string) bool
}{
	{func(r *model.StudentRecord, v string) { r.Name = v }, oneOf("name", "student name", "full name", "name of the student")},
	{func(r *model.StudentRecord, v string) { r.Branch = v }, oneOf("branch", "department", "dept")},
	{func(r *model.StudentRecord, v string) { r.Section = v }, oneOf("section", "sec")},
	{func(r *model.StudentRecord, v string) { r.CodechefHandle = v }, contains("codechef")},
	{func(r *model.StudentRecord, v string) { r.CodeforcesHandle = v }, contains("codeforces")},
	{func(r *model.StudentRecord, v string) { r.GeeksforgeeksHandle = v }, contains("geeksforgeeks", "gfg")},
	{func(r *model.StudentRecord, v string) { r.HackerrankHandle = v }, contains("hackerrank")},
	{func(r *model.StudentRecord, v string) { r.LeetcodeHandle = v }, contains("leetcode")},
}

func oneOf(names ...string) func(string) bool {
	return func(h string) bool {
		for _, n := range names {
			if h == n {
				return true
			}
		}
		return false
	}
}

func contains(parts ...string) func(string) bool {
	return func(h string) bool {
		for _, p := range parts {
			if strings.Contains(h, p) {
				return true
			}
		}
		return false
	}
}

// FromRows converts sheet rows into roster records. The header is the first
// non-blank row. Rows without an identifier are skipped; a repeated
// identifier keeps its first row.
func FromRows(rows [][]string) ([]model.StudentRecord, error) {
	start := 0
	for start < len(rows) && blank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, ErrMissingColumn
	}
	header := rows[start]
	idCol := contest.IdentifierColumn(header, headerTolerance)
	if idCol < 0 {
		return nil, ErrMissingColumn
	}

	fields := make(map[int]func(*model.StudentRecord, string))
	for i, h := range header {
		if i == idCol {
			continue
		}
		n := contest.NormalizeHeader(h)
		for _, m := range columnMatchers {
			if m.match(n) {
				fields[i] = m.set
				break
			}
		}
	}

	out := make([]model.StudentRecord, 0, len(rows)-start-1)
	seen := make(map[string]struct{})
	for _, row := range rows[start+1:] {
		if idCol >= len(row) {
			continue
		}
		id := model.CanonicalID(row[idCol])
		if model.IsMissingID(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		rec := model.StudentRecord{HallTicketNo: id}
		for i, set := range fields {
			if i < len(row) {
				if v := strings.TrimSpace(row[i]); v != "" {
					set(&rec, v)
				}
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Union appends remote students unknown to stored, with zero ratings, and
// returns the combined roster plus the number appended. stored is not modified.
func Union(stored, remote []model.StudentRecord) ([]model.StudentRecord, int) {
	out := make([]model.StudentRecord, len(stored), len(stored)+len(remote))
	copy(out, stored)

	known := make(map[string]struct{}, len(stored))
	for _, r := range stored {
		known[model.CanonicalID(r.HallTicketNo)] = struct{}{}
	}
	added := 0
	for _, r := range remote {
		id := model.CanonicalID(r.HallTicketNo)
		if model.IsMissingID(id) {
			continue
		}
		if _, ok := known[id]; ok {
			continue
		}
		known[id] = struct{}{}
		out = append(out, model.StudentRecord{
			HallTicketNo: id,
			Name:         r.Name,
			Branch:       r.Branch,
			Section:      r.Section,
			Handles:      r.Handles,
		})
		added++
	}
	return out, added
}
