package scraper

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Option configures the HTTP client behind a scraper.
type Option func(*client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit sets the sustained request rate and burst for one platform.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *client) {
		if perSecond > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithRetry sets the retry policy.
func WithRetry(rc RetryConfig) Option {
	return func(c *client) {
		if rc.MaxAttempts > 0 {
			c.retry = rc
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}
