package fixtures

import (
	"context"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/cpboard/internal/adapters/roster"
	"github.com/okian/cpboard/internal/adapters/sheet"
	"github.com/okian/cpboard/internal/config"
	"github.com/okian/cpboard/internal/domain/contest"
	"github.com/okian/cpboard/pkg/logger"
)

func TestGenerate(t *testing.T) {
	Convey("Given a fixture configuration", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx := context.Background()
		dir := t.TempDir()
		cfg := Config{
			Dir:             dir,
			Cohort:          "CMRIT 2025",
			Students:        40,
			WeeklyContests:  3,
			MonthlyContests: 2,
			Attendance:      0.9,
			Format:          sheet.XLSX,
			Seed:            42,
			Workers:         2,
		}

		Convey("When a cohort is generated", func() {
			m, stats, err := Generate(ctx, cfg)
			So(err, ShouldBeNil)

			Convey("Then every file is written and rows are accounted for", func() {
				So(m.Files, ShouldHaveLength, 5)
				So(m.Students, ShouldHaveLength, 40)
				So(stats.Rows+stats.Skipped, ShouldEqual, 5*40)
				So(stats.Noisy, ShouldBeGreaterThan, 0)
				So(m.Students[0].HallTicketNo, ShouldEqual, "CMRIT20250001")
				So(m.Students[4].HackerrankHandle, ShouldBeEmpty)
				So(m.Students[0].CodeforcesHandle, ShouldStartWith, "cf_")
			})

			Convey("Then the roster reads back through the roster adapter", func() {
				recs, err := roster.New().Load(ctx, m.RosterPath)
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 40)
				So(recs[1].GeeksforgeeksHandle, ShouldEqual, m.Students[1].GeeksforgeeksHandle)
			})

			Convey("Then every contest file ingests with its header variant", func() {
				in := contest.NewIngestor(sheet.NewReader())
				total := 0
				for _, f := range m.Files {
					res, err := in.Ingest(ctx, f)
					So(err, ShouldBeNil)
					So(res.Dropped, ShouldEqual, 0)
					So(res.Malformed, ShouldEqual, 0)
					total += len(res.Entries)
				}
				So(total, ShouldEqual, stats.Rows)
			})

			Convey("Then the config snippet loads", func() {
				loaded, err := config.LoadFile(ctx, m.ConfigPath)
				So(err, ShouldBeNil)
				cc, ok := loaded.Cohort("CMRIT 2025")
				So(ok, ShouldBeTrue)
				So(cc.Weekly, ShouldResemble, []string{filepath.Join(dir, "weekly")})
			})
		})

		Convey("When the same seed is used twice", func() {
			cfg.Format = sheet.CSV
			_, a, err := Generate(ctx, cfg)
			So(err, ShouldBeNil)
			cfg.Dir = t.TempDir()
			_, b, err := Generate(ctx, cfg)
			So(err, ShouldBeNil)

			Convey("Then attendance is reproducible", func() {
				So(b, ShouldResemble, a)
			})
		})

		Convey("When no students are requested", func() {
			cfg.Students = -1
			_, _, err := Generate(ctx, cfg)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestScoreProfiles(t *testing.T) {
	Convey("Given every performer profile", t, func() {
		rng := newTestRand()
		for p := 0; p < profileCount; p++ {
			for i := 0; i < 200; i++ {
				v := score(rng, p)
				So(v, ShouldBeBetweenOrEqual, 0, 100)
			}
		}
	})
}
