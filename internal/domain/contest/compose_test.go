package contest_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/okian/cpboard/internal/domain/contest"
	"github.com/okian/cpboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCompose(t *testing.T) {
	Convey("Given weekly {S1:80} and monthly {S1:50, S2:100} raw scores", t, func() {
		ctx := context.Background()
		root := t.TempDir()
		writeCSV(t, filepath.Join(root, "weekly", "w1.csv"), "S1,80")
		writeCSV(t, filepath.Join(root, "monthly", "m1.csv"), "S1,50", "S2,100")

		agg := newCSVAggregator()
		weekly, _, err := agg.Aggregate(ctx, model.Weekly, []string{filepath.Join(root, "weekly")})
		So(err, ShouldBeNil)
		monthly, _, err := agg.Aggregate(ctx, model.Monthly, []string{filepath.Join(root, "monthly")})
		So(err, ShouldBeNil)

		c := contest.Compose(weekly, monthly, contest.DefaultTierWeights)

		Convey("Then the tiers should be normalized by their maxima", func() {
			So(c.Tiers.Weekly["S1"], ShouldAlmostEqual, 100)
			So(c.Tiers.Monthly["S1"], ShouldAlmostEqual, 50)
			So(c.Tiers.Weekly["S2"], ShouldEqual, 0)
			So(c.Tiers.Monthly["S2"], ShouldAlmostEqual, 100)
		})

		Convey("Then both students should have pyramidRating 10.0", func() {
			So(c.Table.Platform, ShouldEqual, model.Pyramid)
			So(c.Table.Ratings["S1"], ShouldAlmostEqual, 10.0, 1e-9)
			So(c.Table.Ratings["S2"], ShouldAlmostEqual, 10.0, 1e-9)
		})
	})

	Convey("Given disjoint tiers", t, func() {
		c := contest.Compose(
			model.ContestTierScore{"A": 100},
			model.ContestTierScore{"B": 100},
			contest.TierWeights{Weekly: 0.5, Monthly: 0.25},
		)

		Convey("Then the output should cover the union with zero for the absent tier", func() {
			So(len(c.Table.Ratings), ShouldEqual, 2)
			So(c.Table.Ratings["A"], ShouldEqual, 50)
			So(c.Table.Ratings["B"], ShouldEqual, 25)
		})
	})

	Convey("Given two empty tiers", t, func() {
		c := contest.Compose(nil, nil, contest.DefaultTierWeights)
		So(len(c.Table.Ratings), ShouldEqual, 0)
	})
}
