// Package scraper fetches per-student ratings from external judges.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/okian/cpboard/internal/config"
	"github.com/okian/cpboard/internal/domain/model"
	"github.com/okian/cpboard/pkg/metrics"
)

var tracer = otel.Tracer("github.com/okian/cpboard/internal/adapters/scraper")

// Scraper produces one PlatformTable per platform it covers. Students without
// a handle, or whose handle the platform does not know, are left out of the
// table. When every attempted lookup fails the error wraps
// ErrUnreachableSource.
type Scraper interface {
	Name() string
	Platforms() []model.Platform
	Scrape(ctx context.Context, roster []model.StudentRecord) ([]model.PlatformTable, error)
}

// Names lists the supported scraper names in canonical order.
var Names = []string{"codechef", "codeforces", "geeksforgeeks", "hackerrank", "leetcode"}

// lookupResult is one handle's ratings keyed by platform.
type lookupResult map[model.Platform]float64

// lookupFunc fetches the ratings of one handle.
type lookupFunc func(ctx context.Context, handle string) (lookupResult, error)

// handleIndex groups roster identifiers by handle; several students may share one.
func handleIndex(roster []model.StudentRecord, p model.Platform) (handles []string, owners map[string][]string) {
	owners = make(map[string][]string)
	for i := range roster {
		h := strings.TrimSpace(roster[i].Handle(p))
		if h == "" {
			continue
		}
		key := strings.ToLower(h)
		if _, ok := owners[key]; !ok {
			handles = append(handles, h)
		}
		owners[key] = append(owners[key], model.CanonicalID(roster[i].HallTicketNo))
	}
	return handles, owners
}

// tally counts lookup outcomes for one Scrape call.
type tally struct {
	mu       sync.Mutex
	ok       int
	absent   int
	failures int
	lastErr  error
}

func (t *tally) record(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case err == nil:
		t.ok++
	case errors.Is(err, ErrHandleNotFound):
		t.absent++
	default:
		t.failures++
		t.lastErr = err
	}
}

// unreachable reports whether every attempted lookup failed.
func (t *tally) unreachable() bool {
	return t.failures > 0 && t.ok == 0 && t.absent == 0
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrHandleNotFound):
		return "absent"
	}
	return "error"
}

// scrapePerHandle runs lookup for every distinct handle with bounded
// concurrency and folds the results into one table per platform.
func scrapePerHandle(ctx context.Context, name string, handlePlatform model.Platform, platforms []model.Platform,
	roster []model.StudentRecord, concurrency int, lookup lookupFunc,
) ([]model.PlatformTable, error) {
	ctx, span := tracer.Start(ctx, "scraper.Scrape")
	defer span.End()
	span.SetAttributes(attribute.String("scraper", name))

	handles, owners := handleIndex(roster, handlePlatform)
	span.SetAttributes(attribute.Int("handles", len(handles)))

	tables := make([]model.PlatformTable, len(platforms))
	for i, p := range platforms {
		tables[i] = model.NewPlatformTable(p)
	}

	var (
		mu sync.Mutex
		t  tally
		g  errgroup.Group
	)
	g.SetLimit(max(concurrency, 1))
	for _, h := range handles {
		g.Go(func() error {
			start := time.Now()
			res, err := lookup(ctx, h)
			metrics.RecordScrapeLookup(name, outcome(err), float64(time.Since(start).Milliseconds()))
			t.record(err)
			if err != nil {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for i, p := range platforms {
				v, ok := res[p]
				if !ok {
					continue
				}
				for _, id := range owners[strings.ToLower(h)] {
					tables[i].Put(id, v)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.unreachable() {
		err := fmt.Errorf("%w: %s: %d lookups failed: %w", ErrUnreachableSource, name, t.failures, t.lastErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unreachable")
		return nil, err
	}
	return tables, nil
}

// FromConfig builds the enabled scrapers.
func FromConfig(cfg config.ScraperConfig) ([]Scraper, error) {
	out := make([]Scraper, 0, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		s, err := ByName(name, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ByName builds one scraper from configuration.
func ByName(name string, cfg config.ScraperConfig) (Scraper, error) {
	opts := []Option{
		WithTimeout(cfg.Timeout),
		WithRateLimit(cfg.RatePerSecond, cfg.Burst),
		WithRetry(RetryConfig{
			MaxAttempts:   cfg.MaxAttempts,
			BaseDelay:     cfg.BaseDelay,
			MaxDelay:      cfg.MaxDelay,
			JitterPercent: cfg.JitterPercent,
		}),
		WithUserAgent(cfg.UserAgent),
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "codechef":
		return NewCodechef(cfg.CodechefURL, opts...), nil
	case "codeforces":
		return NewCodeforces(cfg.CodeforcesURL, cfg.BatchSize, opts...), nil
	case "geeksforgeeks":
		return NewGeeksforgeeks(cfg.GeeksforgeeksURL, opts...), nil
	case "hackerrank":
		return NewHackerrank(cfg.HackerrankURL, opts...), nil
	case "leetcode":
		return NewLeetcode(cfg.LeetcodeURL, opts...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScraper, name)
}

// ForPlatform returns the scraper covering p.
func ForPlatform(p model.Platform, cfg config.ScraperConfig) (Scraper, error) {
	switch p {
	case model.Codechef:
		return ByName("codechef", cfg)
	case model.Codeforces:
		return ByName("codeforces", cfg)
	case model.GeeksforgeeksWeekly, model.GeeksforgeeksPractice:
		return ByName("geeksforgeeks", cfg)
	case model.Hackerrank:
		return ByName("hackerrank", cfg)
	case model.Leetcode:
		return ByName("leetcode", cfg)
	}
	return nil, fmt.Errorf("%w: no scraper for %s", ErrUnknownScraper, p)
}
