package scraper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/cpboard/internal/domain/model"
)

const leetcodeQuery = `query userContestRankingInfo($username: String!) {
  userContestRanking(username: $username) {
    rating
  }
}`

// Leetcode reads the contest rating through the public GraphQL endpoint.
type Leetcode struct {
	endpoint string
	c        *client
}

// NewLeetcode builds a scraper against the GraphQL endpoint.
func NewLeetcode(endpoint string, opts ...Option) *Leetcode {
	return &Leetcode{endpoint: endpoint, c: newClient(opts...)}
}

// Name implements Scraper.
func (s *Leetcode) Name() string { return "leetcode" }

// Platforms implements Scraper.
func (s *Leetcode) Platforms() []model.Platform { return []model.Platform{model.Leetcode} }

// Scrape implements Scraper.
func (s *Leetcode) Scrape(ctx context.Context, roster []model.StudentRecord) ([]model.PlatformTable, error) {
	return scrapePerHandle(ctx, s.Name(), model.Leetcode, s.Platforms(), roster, s.c.limiter.Burst(), s.lookup)
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type leetcodeResponse struct {
	Data struct {
		UserContestRanking *struct {
			Rating float64 `json:"rating"`
		} `json:"userContestRanking"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (s *Leetcode) lookup(ctx context.Context, handle string) (lookupResult, error) {
	payload, err := json.Marshal(graphQLRequest{
		Query:     leetcodeQuery,
		Variables: map[string]any{"username": handle},
	})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	raw, err := s.c.postJSON(ctx, s.endpoint, payload)
	if err != nil {
		return nil, err
	}

	var resp leetcodeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode graphql: %w", ErrUnexpectedResponse, err)
	}
	// An unknown user and a user who never competed both yield a null ranking.
	if resp.Data.UserContestRanking == nil {
		if len(resp.Errors) > 0 && !notFoundMessage(resp.Errors[0].Message) {
			return nil, fmt.Errorf("%w: graphql: %s", ErrUnexpectedResponse, resp.Errors[0].Message)
		}
		return nil, ErrHandleNotFound
	}
	return lookupResult{model.Leetcode: resp.Data.UserContestRanking.Rating}, nil
}
