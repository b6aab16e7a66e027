package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/okian/cpboard/internal/domain/model"
)

// Profile labels read from a GeeksforGeeks user page.
const (
	gfgPracticeLabel = "Coding Score"
	gfgWeeklyLabel   = "Contest Rating"
)

// Geeksforgeeks reads both the practice coding score and the weekly contest
// rating from one profile page.
type Geeksforgeeks struct {
	base string
	c    *client
}

// NewGeeksforgeeks builds a scraper against base (e.g. https://www.geeksforgeeks.org/user).
func NewGeeksforgeeks(base string, opts ...Option) *Geeksforgeeks {
	return &Geeksforgeeks{base: strings.TrimRight(base, "/"), c: newClient(opts...)}
}

// Name implements Scraper.
func (s *Geeksforgeeks) Name() string { return "geeksforgeeks" }

// Platforms reports that one scrape fills both Geeksforgeeks columns.
func (s *Geeksforgeeks) Platforms() []model.Platform {
	return []model.Platform{model.GeeksforgeeksWeekly, model.GeeksforgeeksPractice}
}

// Scrape implements Scraper.
func (s *Geeksforgeeks) Scrape(ctx context.Context, roster []model.StudentRecord) ([]model.PlatformTable, error) {
	return scrapePerHandle(ctx, s.Name(), model.GeeksforgeeksPractice, s.Platforms(), roster, s.c.limiter.Burst(), s.lookup)
}

func (s *Geeksforgeeks) lookup(ctx context.Context, handle string) (lookupResult, error) {
	raw, err := s.c.get(ctx, s.base+"/"+url.PathEscape(handle)+"/", "text/html")
	if err != nil {
		return nil, err
	}
	doc, err := parseHTML(raw)
	if err != nil {
		return nil, err
	}

	res := lookupResult{}
	if text, ok := labelledValue(doc, gfgPracticeLabel); ok {
		if v, ok := parseNumber(text); ok {
			res[model.GeeksforgeeksPractice] = v
		}
	}
	if text, ok := labelledValue(doc, gfgWeeklyLabel); ok {
		if v, ok := parseNumber(text); ok {
			res[model.GeeksforgeeksWeekly] = v
		}
	}
	if len(res) == 0 {
		return nil, ErrHandleNotFound
	}
	return res, nil
}
