package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/cpboard/internal/adapters/http/api"
	"github.com/okian/cpboard/internal/adapters/mq/queue"
	"github.com/okian/cpboard/internal/adapters/repository"
	"github.com/okian/cpboard/internal/domain/model"
	"github.com/okian/cpboard/internal/domain/types"
	"github.com/okian/cpboard/internal/pipeline"
)

type mockDeps struct {
	entries   map[string][]types.Entry
	topNErr   error
	submitErr error
	submitted []pipeline.Request
}

func newMockDeps() *mockDeps {
	return &mockDeps{entries: map[string][]types.Entry{
		"cse": {
			{Rank: 1, HallTicketNo: "S2", Percentile: 90},
			{Rank: 2, HallTicketNo: "S1", Percentile: 75},
			{Rank: 2, HallTicketNo: "S3", Percentile: 75},
		},
		"CMRIT 2025": {
			{Rank: 1, HallTicketNo: "C1", Percentile: 50},
		},
	}}
}

func (m *mockDeps) TopN(_ context.Context, cohort string, n int) ([]types.Entry, error) {
	if m.topNErr != nil {
		return nil, m.topNErr
	}
	all := m.entries[cohort]
	return all[:min(n, len(all))], nil
}

func (m *mockDeps) Rank(_ context.Context, cohort, id string) (types.Entry, error) {
	for _, e := range m.entries[cohort] {
		if e.HallTicketNo == strings.ToUpper(id) {
			return e, nil
		}
	}
	return types.Entry{}, fmt.Errorf("rank %s: %w", id, repository.ErrNotFound)
}

func (m *mockDeps) Submit(_ context.Context, req pipeline.Request) (types.RunAck, error) {
	if m.submitErr != nil {
		return types.RunAck{}, m.submitErr
	}
	m.submitted = append(m.submitted, req)
	return types.RunAck{RunID: "run-1", Cohort: req.Cohort, Mode: string(req.Mode), Platform: string(req.Platform)}, nil
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"started":     true,
		"queueLength": 0,
		"cohorts": map[string]interface{}{
			"cse": map[string]interface{}{"students": 2},
		},
	}
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func newMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, 2).Register(context.Background(), mux)
	return mux
}

func TestLeaderboardEndpoint(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When the top entries of a cohort are requested", func() {
			w := serve(mux, http.MethodGet, "/leaderboard?cohort=cse&limit=2", "")

			Convey("Then they are returned in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].HallTicketNo, ShouldEqual, "S2")
				So(got[1].Rank, ShouldEqual, 2)
			})
		})

		Convey("When the cohort is missing", func() {
			w := serve(mux, http.MethodGet, "/leaderboard?limit=2", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit is invalid or above the cap", func() {
			So(serve(mux, http.MethodGet, "/leaderboard?cohort=cse&limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/leaderboard?cohort=cse&limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)

			w := serve(mux, http.MethodGet, "/leaderboard?cohort=cse&limit=3", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "limit_exceeded")
		})

		Convey("When the store fails", func() {
			deps.topNErr = fmt.Errorf("pool closed")
			So(serve(mux, http.MethodGet, "/leaderboard?cohort=cse&limit=1", "").Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When a non-GET method is used", func() {
			So(serve(mux, http.MethodPost, "/leaderboard?cohort=cse&limit=1", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRankEndpoint(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newMockDeps())

		Convey("When a known student is requested", func() {
			w := serve(mux, http.MethodGet, "/rank/cse/s3", "")

			Convey("Then the entry is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.HallTicketNo, ShouldEqual, "S3")
				So(got.Rank, ShouldEqual, 2)
			})
		})

		Convey("When the cohort name is escaped", func() {
			w := serve(mux, http.MethodGet, "/rank/CMRIT%202025/c1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the student is unknown", func() {
			So(serve(mux, http.MethodGet, "/rank/cse/Z9", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the path is malformed", func() {
			So(serve(mux, http.MethodGet, "/rank/cse", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/rank/cse/S1/extra", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/rank//S1", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRunsEndpoint(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When a full run is posted", func() {
			w := serve(mux, http.MethodPost, "/runs", `{"cohort":"cse"}`)

			Convey("Then it is accepted in full mode", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].Mode, ShouldEqual, pipeline.ModeFull)

				var ack types.RunAck
				So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
				So(ack.RunID, ShouldEqual, "run-1")
			})
		})

		Convey("When a platform run uses a short platform name", func() {
			w := serve(mux, http.MethodPost, "/runs", `{"cohort":"cse","mode":"platform","platform":"codeforces"}`)

			Convey("Then the platform resolves to its column", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.submitted[0].Platform, ShouldEqual, model.Codeforces)
			})
		})

		Convey("When the body is invalid", func() {
			So(serve(mux, http.MethodPost, "/runs", `{"cohort":`).Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodPost, "/runs", `{"cohort":"cse","extra":1}`).Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodPost, "/runs", `{"mode":"full"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodPost, "/runs", `{"cohort":"cse","mode":"weekly"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodPost, "/runs", `{"cohort":"cse","mode":"platform","platform":"topcoder"}`).Code,
				ShouldEqual, http.StatusBadRequest)
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When the cohort is unknown", func() {
			deps.submitErr = fmt.Errorf("%w: mech", pipeline.ErrUnknownCohort)
			So(serve(mux, http.MethodPost, "/runs", `{"cohort":"mech"}`).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the queue is full", func() {
			deps.submitErr = fmt.Errorf("queue run: %w", queue.ErrQueueFull)
			w := serve(mux, http.MethodPost, "/runs", `{"cohort":"cse"}`)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(w.Body.String(), ShouldContainSubstring, "backpressure")
		})

		Convey("When GET is used", func() {
			So(serve(mux, http.MethodGet, "/runs", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newMockDeps())

		Convey("When stats are requested", func() {
			w := serve(mux, http.MethodGet, "/stats", "")

			Convey("Then the provider's map is returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got["started"], ShouldBeTrue)
			})
		})

		Convey("When one cohort's stats are requested", func() {
			w := serve(mux, http.MethodGet, "/stats?cohort=cse", "")

			Convey("Then only that cohort's entry is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got["students"], ShouldEqual, float64(2))
			})
		})

		Convey("When an unknown cohort's stats are requested", func() {
			w := serve(mux, http.MethodGet, "/stats?cohort=ece", "")

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When health is requested after some traffic", func() {
			serve(mux, http.MethodGet, "/leaderboard?cohort=cse&limit=1", "")
			w := serve(mux, http.MethodGet, "/healthz", "")

			Convey("Then Prometheus metrics are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "cpboard_leaderboard_http_requests_total")
			})
		})
	})
}
