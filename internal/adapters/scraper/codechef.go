package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/okian/cpboard/internal/domain/model"
)

// Codechef reads the current rating from the public profile page.
type Codechef struct {
	base string
	c    *client
}

// NewCodechef builds a scraper against base (e.g. https://www.codechef.com/users).
func NewCodechef(base string, opts ...Option) *Codechef {
	return &Codechef{base: strings.TrimRight(base, "/"), c: newClient(opts...)}
}

// Name implements Scraper.
func (s *Codechef) Name() string { return "codechef" }

// Platforms implements Scraper.
func (s *Codechef) Platforms() []model.Platform { return []model.Platform{model.Codechef} }

// Scrape implements Scraper.
func (s *Codechef) Scrape(ctx context.Context, roster []model.StudentRecord) ([]model.PlatformTable, error) {
	return scrapePerHandle(ctx, s.Name(), model.Codechef, s.Platforms(), roster, s.c.limiter.Burst(), s.lookup)
}

func (s *Codechef) lookup(ctx context.Context, handle string) (lookupResult, error) {
	raw, err := s.c.get(ctx, s.base+"/"+url.PathEscape(handle), "text/html")
	if err != nil {
		return nil, err
	}
	doc, err := parseHTML(raw)
	if err != nil {
		return nil, err
	}
	// Unknown users are redirected to a page without a rating widget.
	sel := doc.Find(".rating-number").First()
	if sel.Length() == 0 {
		return nil, ErrHandleNotFound
	}
	v, ok := parseNumber(sel.Text())
	if !ok {
		return lookupResult{model.Codechef: 0}, nil
	}
	return lookupResult{model.Codechef: v}, nil
}
