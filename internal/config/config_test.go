package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/cpboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			convey.So(cfg.Contest.Policy, convey.ShouldEqual, "max")
			convey.So(cfg.Contest.Extensions, convey.ShouldResemble, []string{".xlsx", ".xls"})
			convey.So(cfg.Contest.Recursive, convey.ShouldBeTrue)
			convey.So(cfg.Store.Driver, convey.ShouldEqual, "memory")
			convey.So(cfg.Scraper.Timeout, convey.ShouldEqual, 15*time.Second)
			convey.So(cfg.TierWeights.Weekly, convey.ShouldEqual, 0.05)
			convey.So(cfg.TierWeights.Monthly, convey.ShouldEqual, 0.10)
		})

		convey.Convey("Then the canonical weight table should sum to one", func() {
			sum := 0.0
			for _, w := range cfg.Weights {
				sum += w
			}
			convey.So(len(cfg.Weights), convey.ShouldEqual, 7)
			convey.So(sum, convey.ShouldAlmostEqual, 1.0, 1e-9)
		})

		convey.Convey("Then the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the policy is unknown", func() {
			cfg.Contest.Policy = "average"
			err := cfg.Validate()

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the postgres driver has no DSN", func() {
			cfg.Store.Driver = "postgres"
			err := cfg.Validate()

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an extension lacks the leading dot", func() {
			cfg.Contest.Extensions = []string{"xlsx"}
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a weight is negative", func() {
			cfg.Weights["leetcodeRating"] = -1
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a cohort has nothing configured", func() {
			cfg.Cohorts["EMPTY"] = config.CohortConfig{}
			err := cfg.Validate()

			convey.Convey("Then it should name the cohort", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "EMPTY")
			})
		})

		convey.Convey("When a cohort roster url is malformed", func() {
			cfg.Cohorts["BAD"] = config.CohortConfig{RosterURL: "not a url"}
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When cohorts are listed", func() {
			cfg.Cohorts["B"] = config.CohortConfig{Weekly: []string{"b/weekly"}}
			cfg.Cohorts["A"] = config.CohortConfig{Monthly: []string{"a/monthly"}}

			convey.Convey("Then names should be sorted", func() {
				convey.So(cfg.CohortNames(), convey.ShouldResemble, []string{"A", "B"})
				_, ok := cfg.Cohort("A")
				convey.So(ok, convey.ShouldBeTrue)
				_, ok = cfg.Cohort("C")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}
