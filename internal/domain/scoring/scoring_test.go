package scoring_test

import (
	"math"
	"testing"

	"github.com/okian/cpboard/internal/domain/model"
	scoring "github.com/okian/cpboard/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWeights(t *testing.T) {
	Convey("Given the canonical weights", t, func() {
		w := scoring.DefaultWeights()

		Convey("Then they should cover every platform and sum to one", func() {
			So(len(w), ShouldEqual, len(model.Platforms))
			So(w.Sum(), ShouldAlmostEqual, 1.0, 1e-12)
			So(w.Normalized(), ShouldBeTrue)
		})
	})

	Convey("Given configured weights", t, func() {
		Convey("When keys use mixed spellings", func() {
			w, err := scoring.ParseWeights(map[string]float64{
				"codeforcesRating": 0.3,
				"codeforcesrating": 0.4,
				"leetcode":         0.1,
			})

			Convey("Then the lower-case key should win and short names resolve", func() {
				So(err, ShouldBeNil)
				So(w[model.Codeforces], ShouldEqual, 0.4)
				So(w[model.Leetcode], ShouldEqual, 0.1)
				So(w.Normalized(), ShouldBeFalse)
			})
		})

		Convey("When a key is unknown", func() {
			_, err := scoring.ParseWeights(map[string]float64{"topcoderRating": 1})
			So(err, ShouldNotBeNil)
		})

		Convey("When a weight is negative", func() {
			_, err := scoring.ParseWeights(map[string]float64{"codechefRating": -0.1})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestEngineScore(t *testing.T) {
	Convey("Given a merged cohort", t, func() {
		records := []model.StudentRecord{
			{HallTicketNo: "S1", Ratings: model.Ratings{Codeforces: 2000, Leetcode: 1500, Pyramid: 10}},
			{HallTicketNo: "S2", Ratings: model.Ratings{Codeforces: 1000, Leetcode: 3000, Pyramid: 5}},
			{HallTicketNo: "S3"},
		}
		engine := scoring.NewEngine()
		summary := engine.Score(records)

		Convey("Then cohort maxima should be recorded per platform", func() {
			So(summary.Max[model.Codeforces], ShouldEqual, 2000)
			So(summary.Max[model.Leetcode], ShouldEqual, 3000)
			So(summary.Max[model.Codechef], ShouldEqual, 0)
		})

		Convey("Then Percentile should be the weighted percent-of-max sum", func() {
			// S1: 100*0.25 + 50*0.075 + 100*0.15
			So(records[0].Percentile, ShouldAlmostEqual, 25+3.75+15, 1e-9)
			// S2: 50*0.25 + 100*0.075 + 50*0.15
			So(records[1].Percentile, ShouldAlmostEqual, 12.5+7.5+7.5, 1e-9)
		})

		Convey("Then TotalRating should be the raw sum", func() {
			So(records[0].TotalRating, ShouldEqual, 3510)
			So(records[1].TotalRating, ShouldEqual, 4005)
		})

		Convey("Then an all-zero student should score 0", func() {
			So(records[2].Percentile, ShouldEqual, 0)
			So(records[2].TotalRating, ShouldEqual, 0)
		})

		Convey("Then every Percentile should lie within [0, sum(w)*100]", func() {
			upper := engine.Weights().Sum() * 100
			for _, r := range records {
				So(r.Percentile, ShouldBeGreaterThanOrEqualTo, 0)
				So(r.Percentile, ShouldBeLessThanOrEqualTo, upper+1e-9)
			}
		})
	})

	Convey("Given a platform that is zero for everyone", t, func() {
		records := []model.StudentRecord{
			{HallTicketNo: "A", Ratings: model.Ratings{Codechef: 0, Leetcode: 10}},
			{HallTicketNo: "B", Ratings: model.Ratings{Codechef: 0, Leetcode: 5}},
		}
		scoring.NewEngine().Score(records)

		Convey("Then its contribution should be 0 and nothing NaN or Inf", func() {
			for _, r := range records {
				So(math.IsNaN(r.Percentile), ShouldBeFalse)
				So(math.IsInf(r.Percentile, 0), ShouldBeFalse)
			}
			So(records[0].Percentile, ShouldAlmostEqual, 7.5, 1e-9)
			So(records[1].Percentile, ShouldAlmostEqual, 3.75, 1e-9)
		})
	})

	Convey("Given non-finite raw ratings", t, func() {
		records := []model.StudentRecord{
			{HallTicketNo: "A", Ratings: model.Ratings{Codeforces: math.NaN(), Hackerrank: math.Inf(1)}},
			{HallTicketNo: "B", Ratings: model.Ratings{Codeforces: 100, Hackerrank: 50}},
		}
		scoring.NewEngine().Score(records)

		Convey("Then they should count as zero", func() {
			So(records[0].Percentile, ShouldEqual, 0)
			So(records[0].TotalRating, ShouldEqual, 0)
			So(records[1].Percentile, ShouldAlmostEqual, 25+7.5, 1e-9)
		})
	})

	Convey("Given a negative raw rating", t, func() {
		records := []model.StudentRecord{
			{HallTicketNo: "S1", Ratings: model.Ratings{Pyramid: 10}},
			{HallTicketNo: "S2", Ratings: model.Ratings{Pyramid: -5, Codeforces: -40}},
		}
		engine := scoring.NewEngine()
		engine.Score(records)

		Convey("Then it should count as zero and keep Percentile within bounds", func() {
			So(records[0].Percentile, ShouldAlmostEqual, 15, 1e-9)
			So(records[1].Percentile, ShouldEqual, 0)
			So(records[1].TotalRating, ShouldEqual, 0)
			upper := engine.Weights().Sum() * 100
			for _, r := range records {
				So(r.Percentile, ShouldBeBetweenOrEqual, 0.0, upper+1e-9)
			}
		})

		Convey("Then Percent should never go below zero", func() {
			So(scoring.Percent(-5, 10), ShouldEqual, 0)
		})
	})

	Convey("Given custom weights that do not sum to one", t, func() {
		records := []model.StudentRecord{{HallTicketNo: "A", Ratings: model.Ratings{Codechef: 10, Codeforces: 10}}}
		engine := scoring.NewEngine(scoring.WithWeights(scoring.Weights{model.Codechef: 1, model.Codeforces: 1}))
		engine.Score(records)

		Convey("Then they should be applied as-is, never rescaled", func() {
			So(records[0].Percentile, ShouldEqual, 200)
			So(records[0].TotalRating, ShouldEqual, 20)
		})
	})

	Convey("Given an empty cohort", t, func() {
		So(func() { scoring.NewEngine().Score(nil) }, ShouldNotPanic)
	})
}

func TestRank(t *testing.T) {
	Convey("Given scored records with ties", t, func() {
		records := []model.StudentRecord{
			{HallTicketNo: "C", Percentile: 50},
			{HallTicketNo: "A", Percentile: 80},
			{HallTicketNo: "D", Percentile: 10},
			{HallTicketNo: "B", Percentile: 50},
		}
		scoring.Rank(records)

		Convey("Then order should be Percentile desc then identifier asc", func() {
			ids := []string{records[0].HallTicketNo, records[1].HallTicketNo, records[2].HallTicketNo, records[3].HallTicketNo}
			So(ids, ShouldResemble, []string{"A", "B", "C", "D"})
		})

		Convey("Then ranks should be dense", func() {
			So(records[0].Rank, ShouldEqual, 1)
			So(records[1].Rank, ShouldEqual, 2)
			So(records[2].Rank, ShouldEqual, 2)
			So(records[3].Rank, ShouldEqual, 3)
		})
	})

	Convey("Given Percentiles that differ only by float noise", t, func() {
		x, y := 0.1, 0.2
		noisy := x + y
		So(noisy, ShouldNotEqual, 0.3)

		records := []model.StudentRecord{
			{HallTicketNo: "C", Percentile: 0.2},
			{HallTicketNo: "B", Percentile: noisy},
			{HallTicketNo: "A", Percentile: 0.3},
		}
		scoring.Rank(records)

		Convey("Then they should tie and fall back to identifier order", func() {
			So(records[0].HallTicketNo, ShouldEqual, "A")
			So(records[1].HallTicketNo, ShouldEqual, "B")
			So(records[0].Rank, ShouldEqual, 1)
			So(records[1].Rank, ShouldEqual, 1)
			So(records[2].Rank, ShouldEqual, 2)
		})

		Convey("Then their keys and quantized values should match", func() {
			So(scoring.Key(noisy), ShouldEqual, scoring.Key(0.3))
			So(scoring.Quantize(noisy), ShouldEqual, 0.3)
			So(scoring.Key(0.2), ShouldBeLessThan, scoring.Key(0.3))
		})
	})

	Convey("Given no records", t, func() {
		So(func() { scoring.Rank(nil) }, ShouldNotPanic)
	})
}
