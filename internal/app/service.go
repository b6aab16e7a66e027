// Package service assembles cpboard: the store, the scrapers, the pipeline and
// the run queue with its workers. It implements the dependencies required by
// the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	runqueue "github.com/okian/cpboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/cpboard/internal/adapters/mq/worker"
	"github.com/okian/cpboard/internal/adapters/repository"
	"github.com/okian/cpboard/internal/adapters/retry"
	"github.com/okian/cpboard/internal/adapters/roster"
	"github.com/okian/cpboard/internal/adapters/scraper"
	"github.com/okian/cpboard/internal/config"
	"github.com/okian/cpboard/internal/domain/dedupe"
	"github.com/okian/cpboard/internal/domain/model"
	"github.com/okian/cpboard/internal/domain/types"
	"github.com/okian/cpboard/internal/pipeline"
	"github.com/okian/cpboard/pkg/logger"
	"github.com/okian/cpboard/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// ErrNotStarted is returned by operations that need an opened service.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for cpboard.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	store      repository.Repository
	ownStore   bool
	scrapers   []scraper.Scraper
	roster     pipeline.RosterSource
	pipeline   *pipeline.Pipeline
	deduper    dedupe.Deduper
	runQueue   runqueue.Queue
	workerPool *workerpool.Pool

	runsMu   sync.Mutex
	lastRuns map[string]types.RunSummary

	// State
	opened  bool
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRepository uses repo instead of opening the configured driver. The
// caller keeps ownership of repo.
func WithRepository(repo repository.Repository) Option {
	return func(s *Service) {
		s.store = repo
	}
}

// WithScrapers replaces the scrapers built from configuration. Passing none
// disables scraping.
func WithScrapers(scrapers ...scraper.Scraper) Option {
	return func(s *Service) {
		s.scrapers = append([]scraper.Scraper{}, scrapers...)
	}
}

// WithRosterSource replaces the HTTP roster source.
func WithRosterSource(src pipeline.RosterSource) Option {
	return func(s *Service) {
		s.roster = src
	}
}

// New constructs a Service over cfg. Nothing is opened until Open or Start.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:      cfg,
		lastRuns: make(map[string]types.RunSummary),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open builds the store, scrapers and pipeline. It is enough for synchronous
// runs; Start additionally runs the queue and workers.
func (s *Service) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open(ctx)
}

func (s *Service) open(ctx context.Context) error {
	if s.opened {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.store == nil {
		store, err := repository.Open(ctx, s.cfg.Store)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.ownStore = true
		s.logger.Info(ctx, "store opened", logger.String("driver", s.cfg.Store.Driver))
	}

	if s.scrapers == nil {
		scrapers, err := scraper.FromConfig(s.cfg.Scraper)
		if err != nil {
			s.closeStore()
			return fmt.Errorf("build scrapers: %w", err)
		}
		s.scrapers = scrapers
	}
	if s.roster == nil {
		s.roster = roster.New(
			roster.WithTimeout(s.cfg.Scraper.Timeout),
			roster.WithRetry(retry.Config{
				MaxAttempts:   s.cfg.Scraper.MaxAttempts,
				BaseDelay:     s.cfg.Scraper.BaseDelay,
				MaxDelay:      s.cfg.Scraper.MaxDelay,
				JitterPercent: s.cfg.Scraper.JitterPercent,
			}),
			roster.WithUserAgent(s.cfg.Scraper.UserAgent),
		)
	}

	p, err := pipeline.New(s.cfg, s.store,
		pipeline.WithScrapers(s.scrapers...),
		pipeline.WithRosterSource(s.roster),
	)
	if err != nil {
		s.closeStore()
		return fmt.Errorf("build pipeline: %w", err)
	}
	s.pipeline = p
	s.opened = true
	return nil
}

// Start opens the service and starts the run workers and the schedule.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.open(ctx); err != nil {
		return err
	}

	s.logger.Info(ctx, "starting cpboard service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	q := runqueue.NewInMemoryQueue(runqueue.WithCapacity(s.cfg.QueueSize))
	s.runQueue = q
	s.workerPool = workerpool.NewPool(s.cfg.WorkerCount, q, s.pipeline,
		workerpool.WithReleaser(s.deduper),
		workerpool.WithResultFunc(s.recordResult),
	)
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.stopCh = make(chan struct{})
	if s.cfg.ScheduleInterval > 0 {
		s.wg.Add(1)
		go s.schedule(context.WithoutCancel(ctx), s.cfg.ScheduleInterval)
	}

	s.started = true
	s.logger.Info(ctx, "cpboard service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.cfg.QueueSize),
		logger.Int("cohorts", len(s.cfg.Cohorts)),
		logger.Duration("schedule", s.cfg.ScheduleInterval),
	)
	return nil
}

// Stop drains queued runs, stops the workers and closes an owned store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return
	}
	started, pool, stopCh := s.started, s.workerPool, s.stopCh
	s.started = false
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if started {
		s.logger.Info(ctx, "stopping cpboard service...")
		close(stopCh)
		s.wg.Wait()
		if err := pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}

	s.mu.Lock()
	s.closeStore()
	s.opened = false
	s.mu.Unlock()
	s.logger.Info(ctx, "cpboard service stopped")
}

func (s *Service) closeStore() {
	if s.ownStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "close store", logger.Error(err))
		}
		s.store = nil
		s.ownStore = false
	}
}

// schedule enqueues a full run for every configured cohort on each tick.
func (s *Service) schedule(ctx context.Context, every time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			for _, cohort := range s.cfg.CohortNames() {
				if _, err := s.Submit(ctx, pipeline.Request{Cohort: cohort, Mode: pipeline.ModeFull}); err != nil {
					s.logger.Warn(ctx, "scheduled run not queued", logger.String("cohort", cohort), logger.Error(err))
				}
			}
		}
	}
}

// Submit validates req and queues it. A request whose cohort, mode and
// platform match one already pending or running is coalesced into it.
func (s *Service) Submit(ctx context.Context, req pipeline.Request) (types.RunAck, error) { //nolint:gocritic // hugeParam: Request is queued by value
	s.mu.RLock()
	started, p, d, q := s.started, s.pipeline, s.deduper, s.runQueue
	s.mu.RUnlock()
	if !started {
		return types.RunAck{}, ErrNotStarted
	}

	if err := p.Validate(&req); err != nil {
		return types.RunAck{}, err
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	ack := types.RunAck{
		RunID:    req.RunID,
		Cohort:   req.Cohort,
		Mode:     string(req.Mode),
		Platform: string(req.Platform),
	}

	if d.SeenAndRecord(ctx, req.Key()) {
		metrics.RecordRunCoalesced()
		ack.Coalesced = true
		s.logger.Debug(ctx, "run coalesced", logger.String("key", req.Key()))
		return ack, nil
	}
	if err := q.Enqueue(ctx, req); err != nil {
		d.Unrecord(ctx, req.Key())
		return types.RunAck{}, fmt.Errorf("queue run: %w", err)
	}
	s.logger.Info(ctx, "run queued",
		logger.String("run_id", req.RunID),
		logger.String("cohort", req.Cohort),
		logger.String("mode", string(req.Mode)),
	)
	return ack, nil
}

// RunNow executes req synchronously, bypassing the queue.
func (s *Service) RunNow(ctx context.Context, req pipeline.Request) (pipeline.Result, error) { //nolint:gocritic // hugeParam: mirrors Submit
	s.mu.RLock()
	p := s.pipeline
	s.mu.RUnlock()
	if p == nil {
		return pipeline.Result{}, ErrNotStarted
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	res, err := p.Run(ctx, req)
	s.recordResult(ctx, req, res, err)
	return res, err
}

func (s *Service) recordResult(_ context.Context, req pipeline.Request, res pipeline.Result, err error) { //nolint:gocritic // hugeParam: worker callback signature
	summary := types.RunSummary{
		RunID:      req.RunID,
		Mode:       string(req.Mode),
		Students:   res.Students,
		DurationMs: res.Duration.Milliseconds(),
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, p := range res.Absent {
		summary.Absent = append(summary.Absent, string(p))
	}
	if err != nil {
		summary.Error = err.Error()
	}
	s.runsMu.Lock()
	s.lastRuns[req.Cohort] = summary
	s.runsMu.Unlock()
}

// ImportRoster loads a roster spreadsheet and appends its students that are
// not stored yet. It returns how many were added.
func (s *Service) ImportRoster(ctx context.Context, cohort, path string) (int, error) {
	store, err := s.repo()
	if err != nil {
		return 0, err
	}
	if _, ok := s.cfg.Cohort(cohort); !ok {
		return 0, fmt.Errorf("%w: %s", pipeline.ErrUnknownCohort, cohort)
	}
	src, ok := s.roster.(interface {
		Load(ctx context.Context, path string) ([]model.StudentRecord, error)
	})
	if !ok {
		src = roster.New()
	}
	incoming, err := src.Load(ctx, path)
	if err != nil {
		return 0, err
	}
	stored, err := store.GetAllUsers(ctx, cohort)
	if err != nil {
		return 0, fmt.Errorf("read roster of %s: %w", cohort, err)
	}
	union, added := roster.Union(stored, incoming)
	if added == 0 {
		return 0, nil
	}
	if err := store.Upload(ctx, cohort, union[len(stored):]); err != nil {
		return 0, fmt.Errorf("upload roster of %s: %w", cohort, err)
	}
	s.logger.Info(ctx, "roster imported", logger.String("cohort", cohort), logger.Int("added", added))
	return added, nil
}

// TopN returns the first n leaderboard entries of cohort.
func (s *Service) TopN(ctx context.Context, cohort string, n int) ([]types.Entry, error) {
	store, err := s.repo()
	if err != nil {
		return nil, err
	}
	records, err := store.TopN(ctx, cohort, n)
	if err != nil {
		return nil, err
	}
	return types.FromRecords(records), nil
}

// Rank returns the leaderboard entry of one student.
func (s *Service) Rank(ctx context.Context, cohort, id string) (types.Entry, error) {
	store, err := s.repo()
	if err != nil {
		return types.Entry{}, err
	}
	rec, err := store.Rank(ctx, cohort, id)
	if err != nil {
		return types.Entry{}, err
	}
	return types.FromRecord(&rec), nil
}

// Leaderboard returns every ranked record of cohort.
func (s *Service) Leaderboard(ctx context.Context, cohort string) ([]model.StudentRecord, error) {
	store, err := s.repo()
	if err != nil {
		return nil, err
	}
	n, err := store.Count(ctx, cohort)
	if err != nil || n == 0 {
		return nil, err
	}
	return store.TopN(ctx, cohort, n)
}

func (s *Service) repo() (repository.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil || !s.opened {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.cfg.WorkerCount,
		"queueSize":   s.cfg.QueueSize,
		"storeDriver": s.cfg.Store.Driver,
	}
	if !s.opened {
		return stats
	}

	if s.started {
		queueLen := s.runQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["pendingRuns"] = s.deduper.Size()
		stats["processedRuns"] = s.workerPool.Processed()
		metrics.UpdateQueueSize(queueLen)
	}

	cohorts := make(map[string]interface{}, len(s.cfg.Cohorts))
	for _, name := range s.cfg.CohortNames() {
		entry := map[string]interface{}{}
		if n, err := s.store.Count(ctx, name); err == nil {
			entry["students"] = n
		}
		s.runsMu.Lock()
		run, ok := s.lastRuns[name]
		s.runsMu.Unlock()
		if ok {
			entry["lastRun"] = run
		}
		cohorts[name] = entry
	}
	stats["cohorts"] = cohorts
	return stats
}
