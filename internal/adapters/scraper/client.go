package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/cpboard/internal/adapters/retry"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 10 * time.Second
	defaultJitter      = 0.2
	defaultUserAgent   = "cpboard/1.0"
	maxBodyBytes       = 4 << 20
)

// RetryConfig bounds retries of one HTTP lookup.
type RetryConfig = retry.Config

// client is the HTTP plumbing shared by every scraper: one token bucket per
// platform and bounded exponential backoff with jitter.
type client struct {
	http      *http.Client
	limiter   *rate.Limiter
	retry     RetryConfig
	userAgent string
}

func newClient(opts ...Option) *client {
	c := &client{
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
		retry: RetryConfig{
			MaxAttempts:   defaultMaxAttempts,
			BaseDelay:     defaultBaseDelay,
			MaxDelay:      defaultMaxDelay,
			JitterPercent: defaultJitter,
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// statusError carries a non-2xx status so retry can tell transient from permanent.
type statusError struct {
	code int
	body []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrUnexpectedResponse, e.code)
}

func (e *statusError) Unwrap() error { return ErrUnexpectedResponse }

func retryable(err error) bool {
	if errors.Is(err, ErrHandleNotFound) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= http.StatusInternalServerError
	}
	return true
}

// get fetches url and returns the body.
func (c *client) get(ctx context.Context, url string, accept string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, accept, nil)
}

// postJSON posts payload and returns the body.
func (c *client) postJSON(ctx context.Context, url string, payload []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url, "application/json", payload)
}

func (c *client) do(ctx context.Context, method, url, accept string, payload []byte) ([]byte, error) {
	var body []byte
	var waitErr error
	n, err := retry.Do(ctx, c.retry,
		func(err error) bool { return waitErr == nil && retryable(err) },
		func(ctx context.Context) error {
			if waitErr = c.limiter.Wait(ctx); waitErr != nil {
				return waitErr
			}
			var err error
			body, err = c.once(ctx, method, url, accept, payload)
			return err
		})
	switch {
	case err == nil:
		return body, nil
	case waitErr != nil:
		return nil, waitErr
	case errors.Is(err, ErrHandleNotFound), ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return nil, err
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", n, err)
}

func (c *client) once(ctx context.Context, method, url, accept string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrHandleNotFound
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode, body: raw}
	}
	return raw, nil
}
