package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/okian/cpboard/internal/domain/model"
)

// Hackerrank sums the contest score of every track from the scores_elo endpoint.
type Hackerrank struct {
	base string
	c    *client
}

// NewHackerrank builds a scraper against base (e.g. https://www.hackerrank.com/rest/hackers).
func NewHackerrank(base string, opts ...Option) *Hackerrank {
	return &Hackerrank{base: strings.TrimRight(base, "/"), c: newClient(opts...)}
}

// Name implements Scraper.
func (s *Hackerrank) Name() string { return "hackerrank" }

// Platforms implements Scraper.
func (s *Hackerrank) Platforms() []model.Platform { return []model.Platform{model.Hackerrank} }

// Scrape implements Scraper.
func (s *Hackerrank) Scrape(ctx context.Context, roster []model.StudentRecord) ([]model.PlatformTable, error) {
	return scrapePerHandle(ctx, s.Name(), model.Hackerrank, s.Platforms(), roster, s.c.limiter.Burst(), s.lookup)
}

type hackerrankTrack struct {
	Name    string `json:"name"`
	Contest struct {
		Score float64 `json:"score"`
	} `json:"contest"`
}

func (s *Hackerrank) lookup(ctx context.Context, handle string) (lookupResult, error) {
	raw, err := s.c.get(ctx, s.base+"/"+url.PathEscape(handle)+"/scores_elo", "application/json")
	if err != nil {
		return nil, err
	}
	var tracks []hackerrankTrack
	if err := json.Unmarshal(raw, &tracks); err != nil {
		return nil, fmt.Errorf("%w: decode scores_elo: %w", ErrUnexpectedResponse, err)
	}
	total := 0.0
	for _, t := range tracks {
		total += t.Contest.Score
	}
	return lookupResult{model.Hackerrank: total}, nil
}
