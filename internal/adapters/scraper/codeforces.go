package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/okian/cpboard/internal/domain/model"
	"github.com/okian/cpboard/pkg/metrics"
)

const defaultCodeforcesBatch = 100

// Codeforces reads current ratings through the user.info API, many handles per call.
type Codeforces struct {
	base  string
	batch int
	c     *client
}

// NewCodeforces builds a scraper against base (e.g. https://codeforces.com/api).
func NewCodeforces(base string, batch int, opts ...Option) *Codeforces {
	if batch <= 0 {
		batch = defaultCodeforcesBatch
	}
	return &Codeforces{base: strings.TrimRight(base, "/"), batch: batch, c: newClient(opts...)}
}

// Name implements Scraper.
func (s *Codeforces) Name() string { return "codeforces" }

// Platforms implements Scraper.
func (s *Codeforces) Platforms() []model.Platform { return []model.Platform{model.Codeforces} }

type codeforcesResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  []struct {
		Handle string  `json:"handle"`
		Rating float64 `json:"rating"`
	} `json:"result"`
}

var codeforcesMissing = regexp.MustCompile(`(?i)user with handle (\S+) not found`)

// Scrape implements Scraper.
func (s *Codeforces) Scrape(ctx context.Context, roster []model.StudentRecord) ([]model.PlatformTable, error) {
	ctx, span := tracer.Start(ctx, "scraper.Scrape")
	defer span.End()
	span.SetAttributes(attribute.String("scraper", s.Name()))

	handles, owners := handleIndex(roster, model.Codeforces)
	span.SetAttributes(attribute.Int("handles", len(handles)))
	table := model.NewPlatformTable(model.Codeforces)

	var t tally
	for start := 0; start < len(handles); start += s.batch {
		chunk := handles[start:min(start+s.batch, len(handles))]
		began := time.Now()
		ratings, err := s.fetch(ctx, chunk)
		metrics.RecordScrapeLookup(s.Name(), outcome(err), float64(time.Since(began).Milliseconds()))
		t.record(err)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		for h, v := range ratings {
			for _, id := range owners[h] {
				table.Put(id, v)
			}
		}
	}

	if t.unreachable() {
		err := fmt.Errorf("%w: %s: %d batches failed: %w", ErrUnreachableSource, s.Name(), t.failures, t.lastErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unreachable")
		return nil, err
	}
	return []model.PlatformTable{table}, nil
}

// fetch resolves one batch, dropping handles the API reports as unknown and
// asking again. Ratings are keyed by lower-cased handle; unrated users are omitted.
func (s *Codeforces) fetch(ctx context.Context, handles []string) (map[string]float64, error) {
	pending := append([]string(nil), handles...)
	for len(pending) > 0 {
		q := url.Values{}
		q.Set("handles", strings.Join(pending, ";"))
		raw, err := s.c.get(ctx, s.base+"/user.info?"+q.Encode(), "application/json")
		if err != nil {
			// Unknown handles come back as 400 with a FAILED body.
			var se *statusError
			if !errors.As(err, &se) || se.code != http.StatusBadRequest {
				return nil, err
			}
			raw = se.body
		}

		var resp codeforcesResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("%w: decode user.info: %w", ErrUnexpectedResponse, err)
		}
		if resp.Status != "OK" {
			m := codeforcesMissing.FindStringSubmatch(resp.Comment)
			if m == nil {
				return nil, fmt.Errorf("%w: user.info: %s", ErrUnexpectedResponse, resp.Comment)
			}
			next := without(pending, m[1])
			if len(next) == len(pending) {
				return nil, fmt.Errorf("%w: user.info: %s", ErrUnexpectedResponse, resp.Comment)
			}
			pending = next
			continue
		}

		out := make(map[string]float64, len(resp.Result))
		for _, u := range resp.Result {
			if u.Rating > 0 {
				out[strings.ToLower(u.Handle)] = u.Rating
			}
		}
		return out, nil
	}
	return map[string]float64{}, nil
}

func without(handles []string, h string) []string {
	out := handles[:0:0]
	for _, v := range handles {
		if !strings.EqualFold(v, h) {
			out = append(out, v)
		}
	}
	return out
}
