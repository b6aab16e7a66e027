package scraper

import "errors"

var (
	// ErrUnreachableSource is returned when every lookup against a platform
	// failed. The pipeline treats the platform as absent for the run.
	ErrUnreachableSource = errors.New("scrape source unreachable")

	// ErrHandleNotFound marks a handle the platform does not know. It is
	// not retried and the student is treated as absent.
	ErrHandleNotFound = errors.New("handle not found")

	// ErrUnexpectedResponse covers non-2xx statuses and undecodable bodies.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrUnknownScraper is returned for a scraper name outside the supported set.
	ErrUnknownScraper = errors.New("unknown scraper")
)
