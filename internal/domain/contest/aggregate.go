package contest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okian/cpboard/internal/domain/dedupe"
	"github.com/okian/cpboard/internal/domain/model"
)

const (
	defaultConcurrency = 4
	normalizedMax      = 100
)

// Policy decides how repeated appearances of one student within a tier combine.
type Policy string

// Combination policies.
const (
	// PolicyMax keeps the best single performance.
	PolicyMax Policy = "max"
	// PolicySum rewards participation volume.
	PolicySum Policy = "sum"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyMax, PolicySum:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

func (p Policy) combine(a, b float64) float64 {
	if p == PolicySum {
		return a + b
	}
	if b > a {
		return b
	}
	return a
}

// FileReport describes what one discovered file contributed.
type FileReport struct {
	Path      string
	Entries   int
	Dropped   int
	Malformed int
	// Err is set when the file was skipped: ErrUnreadableFile, ErrMissingColumn
	// or ErrDuplicateFile.
	Err error
}

// Warnings returns the non-fatal conditions found in the file.
func (r FileReport) Warnings() []error {
	var out []error
	if r.Err != nil {
		out = append(out, r.Err)
	}
	if r.Malformed > 0 {
		out = append(out, fmt.Errorf("%w: %s: %d row(s) scored as 0", ErrMalformedScore, r.Path, r.Malformed))
	}
	return out
}

// TierReport summarizes one tier aggregation.
type TierReport struct {
	Tier model.Tier
	// MissingDirs holds one ErrMissingDirectory per configured directory not found.
	MissingDirs []error
	Files       []FileReport
	Max         float64 // tier maximum before rescaling
}

// Counts returns the number of ingested and skipped files.
func (r TierReport) Counts() (ingested, skipped int) {
	for _, f := range r.Files {
		if f.Err != nil {
			skipped++
		} else {
			ingested++
		}
	}
	return ingested, skipped
}

// Aggregator combines every file of one tier into a ContestTierScore.
type Aggregator struct {
	ingestor    *Ingestor
	policy      Policy
	extensions  map[string]struct{}
	recursive   bool
	perContest  bool
	concurrency int
}

// NewAggregator creates an Aggregator reading files through ingestor.
func NewAggregator(ingestor *Ingestor, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		ingestor:    ingestor,
		policy:      PolicyMax,
		recursive:   true,
		concurrency: defaultConcurrency,
	}
	WithExtensions(".xlsx", ".xls")(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Policy returns the configured combination policy.
func (a *Aggregator) Policy() Policy { return a.policy }

// Aggregate discovers, ingests and combines the files under dirs, then
// rescales the result to 0-100 by the tier maximum. Only context
// cancellation is returned as an error; everything else lands in the report.
func (a *Aggregator) Aggregate(ctx context.Context, tier model.Tier, dirs []string) (model.ContestTierScore, TierReport, error) {
	report := TierReport{Tier: tier}
	scores := model.ContestTierScore{}

	paths, missing, err := a.discover(dirs)
	if err != nil {
		return scores, report, err
	}
	report.MissingDirs = missing
	if len(paths) == 0 {
		return scores, report, nil
	}

	type outcome struct {
		res         FileResult
		fingerprint string
		err         error
	}
	results := make([]outcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			fp, err := dedupe.FingerprintFile(path)
			if err != nil {
				results[i].err = fmt.Errorf("%w: %s: %v", ErrUnreadableFile, path, err)
				return nil
			}
			res, err := a.ingestor.Ingest(gctx, path)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = outcome{res: res, fingerprint: fp, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.ContestTierScore{}, report, err
	}

	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	for i, out := range results {
		fr := FileReport{Path: paths[i], Err: out.err}
		if out.err == nil && seen.SeenAndRecord(ctx, out.fingerprint) {
			fr.Err = fmt.Errorf("%w: %s", ErrDuplicateFile, paths[i])
		}
		if fr.Err != nil {
			report.Files = append(report.Files, fr)
			continue
		}
		fr.Entries = len(out.res.Entries)
		fr.Dropped = out.res.Dropped
		fr.Malformed = out.res.Malformed
		report.Files = append(report.Files, fr)

		for id, v := range a.combineFile(out.res.Entries) {
			if cur, ok := scores[id]; ok {
				scores[id] = a.policy.combine(cur, v)
			} else {
				scores[id] = v
			}
		}
	}

	report.Max = scores.Max()
	Rescale(scores, report.Max)
	return scores, report, nil
}

// combineFile folds one file's entries into at most one value per identifier.
func (a *Aggregator) combineFile(entries []model.ContestEntry) map[string]float64 {
	out := make(map[string]float64, len(entries))
	for _, e := range entries {
		if cur, ok := out[e.ID]; ok {
			out[e.ID] = a.policy.combine(cur, e.Score)
		} else {
			out[e.ID] = e.Score
		}
	}
	if a.perContest {
		m := 0.0
		for _, v := range out {
			if v > m {
				m = v
			}
		}
		Rescale(out, m)
	}
	return out
}

// Rescale maps values onto 0-100 relative to m. When m <= 0 values are left as-is.
func Rescale(values map[string]float64, m float64) {
	if m <= 0 {
		return
	}
	for id, v := range values {
		values[id] = v / m * normalizedMax
	}
}

// discover returns the allowlisted files under dirs sorted by path. Missing
// directories are returned separately as ErrMissingDirectory values.
func (a *Aggregator) discover(dirs []string) ([]string, []error, error) {
	var missing []error
	unique := map[string]struct{}{}

	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				missing = append(missing, fmt.Errorf("%w: %s", ErrMissingDirectory, dir))
				continue
			}
			return nil, missing, err
		}
		if !info.IsDir() {
			missing = append(missing, fmt.Errorf("%w: %s is not a directory", ErrMissingDirectory, dir))
			continue
		}

		if !a.recursive {
			entries, err := os.ReadDir(dir)
			if err != nil {
				return nil, missing, err
			}
			for _, e := range entries {
				if !e.IsDir() && a.allowed(e.Name()) {
					unique[filepath.Join(dir, e.Name())] = struct{}{}
				}
			}
			continue
		}

		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && a.allowed(d.Name()) {
				unique[filepath.Clean(path)] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, missing, err
		}
	}

	paths := make([]string, 0, len(unique))
	for p := range unique {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, missing, nil
}

func (a *Aggregator) allowed(name string) bool {
	// Office lock files share the workbook extension.
	if strings.HasPrefix(name, "~$") {
		return false
	}
	_, ok := a.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
