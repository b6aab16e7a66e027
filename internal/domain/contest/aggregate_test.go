package contest_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/cpboard/internal/adapters/sheet"
	"github.com/okian/cpboard/internal/domain/contest"
	"github.com/okian/cpboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func writeCSV(t *testing.T, path string, rows ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	body := "Hall Ticket Number,Total Score\n" + strings.Join(rows, "\n") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func newCSVAggregator(opts ...contest.AggregatorOption) *contest.Aggregator {
	opts = append([]contest.AggregatorOption{contest.WithExtensions(".csv")}, opts...)
	return contest.NewAggregator(contest.NewIngestor(sheet.NewReader()), opts...)
}

func TestAggregatorPolicies(t *testing.T) {
	ctx := context.Background()

	Convey("Given a student in two weekly files scoring 40 and 70", t, func() {
		dir := filepath.Join(t.TempDir(), "weekly")
		writeCSV(t, filepath.Join(dir, "c1.csv"), "S1,40", "S2,100")
		writeCSV(t, filepath.Join(dir, "c2.csv"), "s1 ,70", "S3,10")

		Convey("When the policy is max", func() {
			agg := newCSVAggregator(contest.WithPolicy(contest.PolicyMax))
			scores, report, err := agg.Aggregate(ctx, model.Weekly, []string{dir})

			Convey("Then the raw tier score should be 70, rescaled by the tier max", func() {
				So(err, ShouldBeNil)
				So(report.Max, ShouldEqual, 100)
				So(scores["S1"], ShouldAlmostEqual, 70)
				So(scores["S2"], ShouldAlmostEqual, 100)
				So(scores["S3"], ShouldAlmostEqual, 10)
			})
		})

		Convey("When the policy is sum", func() {
			agg := newCSVAggregator(contest.WithPolicy(contest.PolicySum))
			scores, report, err := agg.Aggregate(ctx, model.Weekly, []string{dir})

			Convey("Then the raw tier score should be 110 and be the tier max", func() {
				So(err, ShouldBeNil)
				So(report.Max, ShouldEqual, 110)
				So(scores["S1"], ShouldAlmostEqual, 100)
				So(scores["S2"], ShouldAlmostEqual, 100.0/110*100, 1e-9)
			})
		})
	})

	Convey("Given a student listed twice in one file", t, func() {
		dir := t.TempDir()
		writeCSV(t, filepath.Join(dir, "c1.csv"), "S1,30", "S1,50", "S2,100")

		maxScores, _, _ := newCSVAggregator().Aggregate(ctx, model.Weekly, []string{dir})
		sumScores, _, _ := newCSVAggregator(contest.WithPolicy(contest.PolicySum)).Aggregate(ctx, model.Weekly, []string{dir})

		Convey("Then the same policy should apply within the file", func() {
			So(maxScores["S1"], ShouldAlmostEqual, 50)
			So(sumScores["S1"], ShouldAlmostEqual, 80)
		})
	})

	Convey("Given policy names", t, func() {
		p, err := contest.ParsePolicy(" SUM ")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, contest.PolicySum)

		_, err = contest.ParsePolicy("average")
		So(errors.Is(err, contest.ErrUnknownPolicy), ShouldBeTrue)
	})
}

func TestAggregatorNormalization(t *testing.T) {
	ctx := context.Background()

	Convey("Given a tier whose scores are all zero", t, func() {
		dir := t.TempDir()
		writeCSV(t, filepath.Join(dir, "c1.csv"), "S1,0", "S2,0")

		scores, report, err := newCSVAggregator().Aggregate(ctx, model.Monthly, []string{dir})

		Convey("Then values should be left as-is without NaN", func() {
			So(err, ShouldBeNil)
			So(report.Max, ShouldEqual, 0)
			So(scores["S1"], ShouldEqual, 0)
			So(scores["S2"], ShouldEqual, 0)
		})
	})

	Convey("Given contests with different maxima and per-contest normalization", t, func() {
		dir := t.TempDir()
		writeCSV(t, filepath.Join(dir, "easy.csv"), "S1,50", "S2,25")
		writeCSV(t, filepath.Join(dir, "hard.csv"), "S1,5", "S2,10")

		scores, _, err := newCSVAggregator(
			contest.WithPolicy(contest.PolicySum),
			contest.WithPerContestNormalize(true),
		).Aggregate(ctx, model.Weekly, []string{dir})

		Convey("Then each contest should weigh the same", func() {
			So(err, ShouldBeNil)
			// S1: 100 + 50 = 150, S2: 50 + 100 = 150
			So(scores["S1"], ShouldAlmostEqual, 100)
			So(scores["S2"], ShouldAlmostEqual, 100)
		})
	})
}

func TestAggregatorDiscovery(t *testing.T) {
	ctx := context.Background()

	Convey("Given nested directories, foreign files and a missing directory", t, func() {
		root := t.TempDir()
		writeCSV(t, filepath.Join(root, "a.csv"), "S1,10")
		writeCSV(t, filepath.Join(root, "2024", "b.csv"), "S2,20")
		So(os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignore me"), 0o600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(root, "~$a.csv"), []byte("lock"), 0o600), ShouldBeNil)
		missing := filepath.Join(root, "does-not-exist")

		Convey("When walking recursively", func() {
			scores, report, err := newCSVAggregator().Aggregate(ctx, model.Weekly, []string{root, missing})

			Convey("Then nested files should count and the missing dir be reported", func() {
				So(err, ShouldBeNil)
				So(len(scores), ShouldEqual, 2)
				ingested, skipped := report.Counts()
				So(ingested, ShouldEqual, 2)
				So(skipped, ShouldEqual, 0)
				So(len(report.MissingDirs), ShouldEqual, 1)
				So(errors.Is(report.MissingDirs[0], contest.ErrMissingDirectory), ShouldBeTrue)
				So(report.Files[0].Path, ShouldEqual, filepath.Join(root, "2024", "b.csv"))
			})
		})

		Convey("When reading only the top level", func() {
			scores, _, err := newCSVAggregator(contest.WithRecursive(false)).Aggregate(ctx, model.Weekly, []string{root})

			Convey("Then nested files should be ignored", func() {
				So(err, ShouldBeNil)
				So(len(scores), ShouldEqual, 1)
				So(scores, ShouldContainKey, "S1")
			})
		})

		Convey("When only the default spreadsheet extensions are allowed", func() {
			agg := contest.NewAggregator(contest.NewIngestor(sheet.NewReader()))
			scores, report, err := agg.Aggregate(ctx, model.Weekly, []string{root})

			Convey("Then CSV files should not be discovered", func() {
				So(err, ShouldBeNil)
				So(len(scores), ShouldEqual, 0)
				So(len(report.Files), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a copied file and a broken file", t, func() {
		dir := t.TempDir()
		writeCSV(t, filepath.Join(dir, "c1.csv"), "S1,40")
		writeCSV(t, filepath.Join(dir, "c1 (copy).csv"), "S1,40")
		So(os.WriteFile(filepath.Join(dir, "c2.csv"), []byte("Name,Marks\nA,1\n"), 0o600), ShouldBeNil)
		writeCSV(t, filepath.Join(dir, "c3.csv"), "S1,nope", "S2,20")

		scores, report, err := newCSVAggregator(contest.WithPolicy(contest.PolicySum)).Aggregate(ctx, model.Weekly, []string{dir})

		Convey("Then the copy should be skipped so sum does not double count", func() {
			So(err, ShouldBeNil)
			So(report.Max, ShouldEqual, 40)
			So(scores["S1"], ShouldAlmostEqual, 100)
			So(scores["S2"], ShouldAlmostEqual, 50)

			ingested, skipped := report.Counts()
			So(ingested, ShouldEqual, 2)
			So(skipped, ShouldEqual, 2)

			var dup, missingCol, malformed int
			for _, f := range report.Files {
				for _, w := range f.Warnings() {
					switch {
					case errors.Is(w, contest.ErrDuplicateFile):
						dup++
					case errors.Is(w, contest.ErrMissingColumn):
						missingCol++
					case errors.Is(w, contest.ErrMalformedScore):
						malformed++
					}
				}
			}
			So(dup, ShouldEqual, 1)
			So(missingCol, ShouldEqual, 1)
			So(malformed, ShouldEqual, 1)
		})
	})

	Convey("Given many files read in parallel", t, func() {
		dir := t.TempDir()
		for i := 0; i < 25; i++ {
			writeCSV(t, filepath.Join(dir, fmt.Sprintf("c%02d.csv", i)), fmt.Sprintf("S1,%d", i), fmt.Sprintf("S%d,1", i+2))
		}

		first, _, err1 := newCSVAggregator(contest.WithConcurrency(8), contest.WithPolicy(contest.PolicySum)).Aggregate(ctx, model.Weekly, []string{dir})
		second, _, err2 := newCSVAggregator(contest.WithConcurrency(1), contest.WithPolicy(contest.PolicySum)).Aggregate(ctx, model.Weekly, []string{dir})

		Convey("Then the result should not depend on read order", func() {
			So(err1, ShouldBeNil)
			So(err2, ShouldBeNil)
			So(first, ShouldResemble, second)
			So(first["S1"], ShouldAlmostEqual, 100)
		})
	})

	Convey("Given a cancelled context", t, func() {
		dir := t.TempDir()
		writeCSV(t, filepath.Join(dir, "c1.csv"), "S1,40")
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := newCSVAggregator().Aggregate(cctx, model.Weekly, []string{dir})

		Convey("Then the cancellation should be returned", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestAggregatorWorkbooks(t *testing.T) {
	Convey("Given xlsx contest files written by excelize", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		header := []string{"Rank", "Hall Ticket Number", "Total Score"}
		So(sheet.Write(ctx, filepath.Join(dir, "w1.xlsx"), sheet.XLSX, "", header, [][]any{
			{1, "s1", 80},
		}), ShouldBeNil)
		So(sheet.Write(ctx, filepath.Join(dir, "w2.xlsx"), sheet.XLSX, "", header, [][]any{
			{1, "S1", 60}, {2, "S2", 40},
		}), ShouldBeNil)

		scores, report, err := contest.NewAggregator(contest.NewIngestor(sheet.NewReader())).Aggregate(ctx, model.Weekly, []string{dir})

		Convey("Then they should be ingested with the default allowlist", func() {
			So(err, ShouldBeNil)
			ingested, _ := report.Counts()
			So(ingested, ShouldEqual, 2)
			So(scores["S1"], ShouldAlmostEqual, 100)
			So(scores["S2"], ShouldAlmostEqual, 50)
		})
	})
}

func TestAggregatorLegacyWorkbook(t *testing.T) {
	Convey("Given a legacy .xls contest file next to an .xlsx one", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		raw, err := os.ReadFile(filepath.Join("..", "..", "adapters", "sheet", "testdata", "weekly-contest.xls"))
		So(err, ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "w7.xls"), raw, 0o600), ShouldBeNil)
		So(sheet.Write(ctx, filepath.Join(dir, "w8.xlsx"), sheet.XLSX, "",
			[]string{"Hall Ticket Number", "Total Score"}, [][]any{{"21r01a0501", 90}}), ShouldBeNil)

		scores, report, err := contest.NewAggregator(contest.NewIngestor(sheet.NewReader())).Aggregate(ctx, model.Weekly, []string{dir})

		Convey("Then both files contribute to the tier", func() {
			So(err, ShouldBeNil)
			ingested, skipped := report.Counts()
			So(ingested, ShouldEqual, 2)
			So(skipped, ShouldEqual, 0)
			So(len(scores), ShouldEqual, 60)
			So(scores["21R01A0501"], ShouldAlmostEqual, 90)
			So(scores["21R01A0502"], ShouldAlmostEqual, 74)
			So(scores["21R01A0530"], ShouldAlmostEqual, 100)
		})

		Convey("And the row without an identifier is dropped", func() {
			var legacy contest.FileReport
			for _, f := range report.Files {
				if strings.HasSuffix(f.Path, "w7.xls") {
					legacy = f
				}
			}
			So(legacy.Entries, ShouldEqual, 60)
			So(legacy.Dropped, ShouldEqual, 1)
		})
	})
}
