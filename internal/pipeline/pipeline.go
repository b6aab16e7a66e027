// Package pipeline runs one batch over a cohort: roster, Pyramid contests and
// platform scrapes are merged, scored and uploaded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okian/cpboard/internal/adapters/export"
	"github.com/okian/cpboard/internal/adapters/repository"
	"github.com/okian/cpboard/internal/adapters/roster"
	"github.com/okian/cpboard/internal/adapters/scraper"
	"github.com/okian/cpboard/internal/adapters/sheet"
	"github.com/okian/cpboard/internal/config"
	"github.com/okian/cpboard/internal/domain/contest"
	"github.com/okian/cpboard/internal/domain/leaderboard"
	"github.com/okian/cpboard/internal/domain/model"
	"github.com/okian/cpboard/internal/domain/scoring"
	"github.com/okian/cpboard/pkg/logger"
	"github.com/okian/cpboard/pkg/metrics"
)

var tracer = otel.Tracer("github.com/okian/cpboard/internal/pipeline")

// RosterSource fetches a published roster.
type RosterSource interface {
	Fetch(ctx context.Context, url string) ([]model.StudentRecord, error)
}

// Pipeline executes batch runs. It is safe for concurrent use; runs of the
// same cohort should be serialized by the caller.
type Pipeline struct {
	cfg         *config.Config
	store       repository.Store
	scrapers    []scraper.Scraper
	roster      RosterSource
	aggregator  *contest.Aggregator
	engine      *scoring.Engine
	tierWeights contest.TierWeights
	log         logger.Logger
}

// New builds a Pipeline from configuration.
func New(cfg *config.Config, store repository.Store, opts ...Option) (*Pipeline, error) {
	weights, err := scoring.ParseWeights(cfg.Weights)
	if err != nil {
		return nil, err
	}
	policy, err := contest.ParsePolicy(cfg.Contest.Policy)
	if err != nil {
		return nil, err
	}

	ingestor := contest.NewIngestor(sheet.NewReader(), contest.WithHeaderTolerance(cfg.Contest.HeaderTolerance))
	p := &Pipeline{
		cfg:   cfg,
		store: store,
		aggregator: contest.NewAggregator(ingestor,
			contest.WithPolicy(policy),
			contest.WithExtensions(cfg.Contest.Extensions...),
			contest.WithRecursive(cfg.Contest.Recursive),
			contest.WithPerContestNormalize(cfg.Contest.PerContestNormalize),
			contest.WithConcurrency(cfg.Contest.Concurrency),
		),
		engine:      scoring.NewEngine(scoring.WithWeights(weights)),
		tierWeights: contest.TierWeights{Weekly: cfg.TierWeights.Weekly, Monthly: cfg.TierWeights.Monthly},
		log:         logger.Get().Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if !weights.Normalized() {
		p.log.Warn(context.Background(), "platform weights do not sum to 1; Percentile is not bounded by 100",
			logger.Float64("sum", weights.Sum()))
	}
	return p, nil
}

// Run executes one batch and uploads the scored cohort. Store failures are
// returned; missing files, directories and unreachable sources only degrade
// the affected column.
func (p *Pipeline) Run(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	res = Result{RunID: req.RunID, Cohort: req.Cohort, Mode: req.Mode}

	ctx, span := tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("run_id", req.RunID),
		attribute.String("cohort", req.Cohort),
		attribute.String("mode", string(req.Mode)),
	))
	log := p.log.With(logger.String("run_id", req.RunID), logger.String("cohort", req.Cohort),
		logger.String("mode", string(req.Mode)))

	defer func() {
		res.Duration = time.Since(start)
		result := "success"
		if err != nil {
			result = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.RecordRun(req.Cohort, string(req.Mode), result, float64(res.Duration.Milliseconds()))
		span.End()
	}()

	if err := p.Validate(&req); err != nil {
		return res, err
	}
	res.Mode = req.Mode
	cohort, _ := p.cfg.Cohort(req.Cohort)

	students, added, err := p.loadRoster(ctx, req.Cohort, cohort, log)
	if err != nil {
		return res, err
	}
	res.RosterAdded = added

	tables, mergeOpts, err := p.collect(ctx, req, cohort, students, &res, log)
	if err != nil {
		return res, err
	}

	merged, report := leaderboard.Merge(students, tables, mergeOpts...)
	res.Merge = report
	for platform, n := range report.Unmatched {
		log.Debug(ctx, "table identifiers not on the roster", logger.String("platform", string(platform)), logger.Int("count", n))
	}
	if report.DuplicateRoster > 0 || report.MissingRoster > 0 {
		log.Warn(ctx, "roster rows collapsed",
			logger.Int("duplicates", report.DuplicateRoster), logger.Int("missing_id", report.MissingRoster))
	}

	_, scoreSpan := tracer.Start(ctx, "pipeline.score")
	res.Summary = p.engine.Score(merged)
	scoreSpan.End()

	uctx, uploadSpan := tracer.Start(ctx, "pipeline.upload")
	err = p.store.Upload(uctx, req.Cohort, merged)
	uploadSpan.End()
	if err != nil {
		return res, fmt.Errorf("upload cohort %s: %w", req.Cohort, err)
	}

	res.Students = len(merged)
	res.Records = append([]model.StudentRecord(nil), merged...)
	scoring.Rank(res.Records)
	metrics.UpdateStudentsScored(req.Cohort, len(merged))
	log.Info(ctx, "run finished",
		logger.Int("students", len(merged)),
		logger.Int("roster_added", added),
		logger.Any("refreshed", res.Refreshed),
		logger.Any("absent", res.Absent),
		logger.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// Validate checks the cohort, mode and platform of req and normalizes its
// mode. Callers queueing requests use it to reject bad ones up front.
func (p *Pipeline) Validate(req *Request) error {
	if _, ok := p.cfg.Cohort(req.Cohort); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCohort, req.Cohort)
	}
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return err
	}
	req.Mode = mode
	if mode != ModePlatform {
		return nil
	}
	if !req.Platform.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, req.Platform)
	}
	if req.Platform == model.Pyramid {
		return nil
	}
	if p.scraperFor(req.Platform) == nil {
		return fmt.Errorf("%w: %s", ErrNoScraper, req.Platform)
	}
	return nil
}

func (p *Pipeline) scraperFor(platform model.Platform) scraper.Scraper {
	for _, s := range p.scrapers {
		for _, sp := range s.Platforms() {
			if sp == platform {
				return s
			}
		}
	}
	return nil
}

// loadRoster reads the stored cohort and unions the published roster when one
// is configured. An unreachable roster source leaves the stored roster as is.
func (p *Pipeline) loadRoster(ctx context.Context, name string, cohort config.CohortConfig, log logger.Logger) ([]model.StudentRecord, int, error) {
	ctx, span := tracer.Start(ctx, "pipeline.roster")
	defer span.End()

	stored, err := p.store.GetAllUsers(ctx, name)
	if err != nil {
		return nil, 0, fmt.Errorf("load roster %s: %w", name, err)
	}
	if cohort.RosterURL == "" || p.roster == nil {
		return stored, 0, nil
	}

	remote, err := p.roster.Fetch(ctx, cohort.RosterURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		log.Warn(ctx, "remote roster unavailable; using stored roster", logger.Error(err))
		return stored, 0, nil
	}
	students, added := roster.Union(stored, remote)
	span.SetAttributes(attribute.Int("roster_added", added))
	return students, added, nil
}

// collect builds the platform tables the run refreshes.
func (p *Pipeline) collect(ctx context.Context, req Request, cohort config.CohortConfig, students []model.StudentRecord,
	res *Result, log logger.Logger,
) ([]model.PlatformTable, []leaderboard.Option, error) {
	var (
		tables []model.PlatformTable
		opts   []leaderboard.Option
	)

	wantPyramid := req.Mode == ModeFull || req.Mode == ModePyramid ||
		(req.Mode == ModePlatform && req.Platform == model.Pyramid)
	if wantPyramid {
		comp, err := p.pyramid(ctx, cohort, res, log)
		if err != nil {
			return nil, nil, err
		}
		tables = append(tables, comp.Table)
		opts = append(opts, leaderboard.WithPyramidTiers(comp.Tiers))
		res.Refreshed = append(res.Refreshed, model.Pyramid)

		if req.ExportPath != "" {
			if err := p.exportPyramid(ctx, req, comp); err != nil {
				log.Warn(ctx, "pyramid export failed", logger.String("path", req.ExportPath), logger.Error(err))
			}
		}
	}

	var scrapers []scraper.Scraper
	switch {
	case req.Mode == ModeFull:
		scrapers = p.scrapers
	case req.Mode == ModePlatform && req.Platform != model.Pyramid:
		scrapers = []scraper.Scraper{p.scraperFor(req.Platform)}
	}
	if len(scrapers) == 0 {
		return tables, opts, nil
	}

	scraped, err := p.scrape(ctx, scrapers, students, res, log)
	if err != nil {
		return nil, nil, err
	}
	if req.Mode == ModePlatform {
		scraped = only(scraped, req.Platform)
		res.Absent = onlyPlatforms(res.Absent, req.Platform)
		res.Refreshed = nil
		if len(res.Absent) == 0 {
			res.Refreshed = []model.Platform{req.Platform}
		}
	}
	return append(tables, scraped...), opts, nil
}

func (p *Pipeline) pyramid(ctx context.Context, cohort config.CohortConfig, res *Result, log logger.Logger) (contest.Composition, error) {
	ctx, span := tracer.Start(ctx, "pipeline.pyramid")
	defer span.End()

	tiers := []struct {
		tier model.Tier
		dirs []string
	}{
		{model.Weekly, cohort.Weekly},
		{model.Monthly, cohort.Monthly},
	}
	scores := make([]model.ContestTierScore, len(tiers))
	for i, t := range tiers {
		s, report, err := p.aggregator.Aggregate(ctx, t.tier, t.dirs)
		if err != nil {
			return contest.Composition{}, err
		}
		scores[i] = s
		res.Tiers = append(res.Tiers, report)
		p.reportTier(ctx, report, log)
	}
	return contest.Compose(scores[0], scores[1], p.tierWeights), nil
}

func (p *Pipeline) reportTier(ctx context.Context, report contest.TierReport, log logger.Logger) {
	tier := string(report.Tier)
	for _, err := range report.MissingDirs {
		log.Warn(ctx, "contest directory missing", logger.String("tier", tier), logger.Error(err))
	}
	for _, f := range report.Files {
		if f.Err != nil {
			metrics.RecordFileSkipped(tier, skipReason(f.Err))
		} else {
			metrics.RecordFileIngested(tier)
			metrics.RecordRowsDropped(tier, f.Dropped)
			metrics.RecordMalformedScores(tier, f.Malformed)
		}
		for _, w := range f.Warnings() {
			log.Warn(ctx, "contest file", logger.String("tier", tier), logger.String("path", f.Path), logger.Error(w))
		}
		if f.Dropped > 0 {
			log.Debug(ctx, "rows without identifier dropped", logger.String("path", f.Path), logger.Int("rows", f.Dropped))
		}
	}
	ingested, skipped := report.Counts()
	log.Info(ctx, "tier aggregated",
		logger.String("tier", tier),
		logger.Int("files", ingested),
		logger.Int("skipped", skipped),
		logger.Float64("max", report.Max),
	)
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, contest.ErrMissingColumn):
		return "missing_column"
	case errors.Is(err, contest.ErrDuplicateFile):
		return "duplicate"
	case errors.Is(err, contest.ErrUnreadableFile):
		return "unreadable"
	}
	return "other"
}

// scrape runs every scraper concurrently. A failing scraper never cancels its
// siblings; its platforms are zero-filled.
func (p *Pipeline) scrape(ctx context.Context, scrapers []scraper.Scraper, students []model.StudentRecord, res *Result, log logger.Logger) ([]model.PlatformTable, error) {
	ctx, span := tracer.Start(ctx, "pipeline.scrape")
	defer span.End()

	var (
		mu     sync.Mutex
		tables []model.PlatformTable
		absent []model.Platform
		g      errgroup.Group
	)
	for _, s := range scrapers {
		g.Go(func() error {
			out, err := s.Scrape(ctx, students)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn(ctx, "scraper failed; platform treated as absent",
					logger.String("scraper", s.Name()), logger.Error(err))
				for _, platform := range s.Platforms() {
					metrics.RecordPlatformAbsent(string(platform))
					tables = append(tables, model.NewPlatformTable(platform))
					absent = append(absent, platform)
				}
				return nil
			}
			tables = append(tables, out...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(tables, func(i, j int) bool { return tables[i].Platform < tables[j].Platform })
	sort.Slice(absent, func(i, j int) bool { return absent[i] < absent[j] })
	for _, t := range tables {
		if !containsPlatform(absent, t.Platform) {
			res.Refreshed = append(res.Refreshed, t.Platform)
		}
	}
	res.Absent = append(res.Absent, absent...)
	return tables, nil
}

func (p *Pipeline) exportPyramid(ctx context.Context, req Request, comp contest.Composition) error {
	format, err := export.FormatFor(req.ExportPath, req.ExportFormat)
	if err != nil {
		return err
	}
	return export.Pyramid(ctx, req.ExportPath, format, comp)
}

func only(tables []model.PlatformTable, platform model.Platform) []model.PlatformTable {
	out := tables[:0:0]
	for _, t := range tables {
		if t.Platform == platform {
			out = append(out, t)
		}
	}
	return out
}

func onlyPlatforms(ps []model.Platform, platform model.Platform) []model.Platform {
	if containsPlatform(ps, platform) {
		return []model.Platform{platform}
	}
	return nil
}

func containsPlatform(ps []model.Platform, platform model.Platform) bool {
	for _, p := range ps {
		if p == platform {
			return true
		}
	}
	return false
}
