package pipeline

import "errors"

var (
	// ErrUnknownCohort is returned for a cohort missing from configuration.
	ErrUnknownCohort = errors.New("unknown cohort")

	// ErrUnknownPlatform is returned when a partial run names no known platform.
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrUnknownMode is returned for a run mode outside full, platform and pyramid.
	ErrUnknownMode = errors.New("unknown run mode")

	// ErrNoScraper is returned when a partial run targets a platform whose
	// scraper is not configured.
	ErrNoScraper = errors.New("no scraper configured for platform")
)
