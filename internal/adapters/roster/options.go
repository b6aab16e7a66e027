package roster

import (
	"net/http"
	"time"

	"github.com/okian/cpboard/internal/adapters/retry"
	"github.com/okian/cpboard/internal/adapters/sheet"
)

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Source) {
		if hc != nil {
			s.http = hc
		}
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.http.Timeout = d
		}
	}
}

// WithRetry sets the download retry policy.
func WithRetry(rc retry.Config) Option {
	return func(s *Source) {
		if rc.MaxAttempts > 0 {
			s.retry = rc
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Source) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithSheetReader replaces the reader used for local roster files.
func WithSheetReader(r *sheet.Reader) Option {
	return func(s *Source) {
		if r != nil {
			s.reader = r
		}
	}
}
