package pipeline

import (
	"github.com/okian/cpboard/internal/adapters/scraper"
	"github.com/okian/cpboard/pkg/logger"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithScrapers sets the scrapers used by full and platform runs.
func WithScrapers(scrapers ...scraper.Scraper) Option {
	return func(p *Pipeline) {
		p.scrapers = scrapers
	}
}

// WithRosterSource enables the remote roster union for cohorts with a roster URL.
func WithRosterSource(src RosterSource) Option {
	return func(p *Pipeline) {
		p.roster = src
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}
