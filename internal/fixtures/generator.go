package fixtures

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/cpboard/internal/adapters/sheet"
	"github.com/okian/cpboard/internal/domain/model"
	"github.com/okian/cpboard/pkg/logger"
)

// Generate writes a roster, contest files and a config snippet under cfg.Dir.
func Generate(ctx context.Context, cfg Config) (Manifest, Stats, error) {
	cfg = withDefaults(cfg)
	if cfg.Students < 1 {
		return Manifest{}, Stats{}, fmt.Errorf("students must be positive, got %d", cfg.Students)
	}
	log := logger.Get().Named("fixtures")
	log.Info(ctx, "generating cohort",
		logger.String("cohort", cfg.Cohort),
		logger.Int("students", cfg.Students),
		logger.Int("weekly", cfg.WeeklyContests),
		logger.Int("monthly", cfg.MonthlyContests),
	)

	m := Manifest{
		Seed:       cfg.Seed,
		RosterPath: filepath.Join(cfg.Dir, "roster."+string(cfg.Format)),
		ConfigPath: filepath.Join(cfg.Dir, "cpboard.yaml"),
		WeeklyDir:  filepath.Join(cfg.Dir, "weekly"),
		MonthlyDir: filepath.Join(cfg.Dir, "monthly"),
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed>>1|1))
	m.Students = students(cfg.Cohort, cfg.Students)
	profiles := make([]int, len(m.Students))
	for i := range profiles {
		profiles[i] = rng.IntN(profileCount)
	}

	if err := writeRoster(ctx, m.RosterPath, cfg.Format, m.Students); err != nil {
		return m, Stats{}, err
	}

	type job struct {
		path string
		seed uint64
	}
	var jobs []job
	for i := 1; i <= cfg.WeeklyContests; i++ {
		jobs = append(jobs, job{filepath.Join(m.WeeklyDir, fmt.Sprintf("week-%02d.%s", i, cfg.Format)), rng.Uint64()})
	}
	for i := 1; i <= cfg.MonthlyContests; i++ {
		jobs = append(jobs, job{filepath.Join(m.MonthlyDir, fmt.Sprintf("month-%02d.%s", i, cfg.Format)), rng.Uint64()})
	}

	var (
		mu    sync.Mutex
		stats Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, j := range jobs {
		g.Go(func() error {
			s, err := writeContest(gctx, j.path, cfg, idHeaders[i%len(idHeaders)], m.Students, profiles, j.seed)
			if err != nil {
				return err
			}
			mu.Lock()
			stats.Rows += s.Rows
			stats.Noisy += s.Noisy
			stats.Skipped += s.Skipped
			mu.Unlock()
			return nil
		})
		m.Files = append(m.Files, j.path)
	}
	if err := g.Wait(); err != nil {
		return m, stats, err
	}

	if err := writeConfig(m, cfg.Cohort); err != nil {
		return m, stats, err
	}
	log.Info(ctx, "cohort generated",
		logger.Int("files", len(m.Files)),
		logger.Int("rows", stats.Rows),
		logger.Int("noisy", stats.Noisy),
	)
	return m, stats, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Dir == "" {
		cfg.Dir = "fixtures"
	}
	if cfg.Cohort == "" {
		cfg.Cohort = "demo"
	}
	if cfg.Format == "" {
		cfg.Format = sheet.XLSX
	}
	if cfg.Attendance <= 0 || cfg.Attendance > 1 {
		cfg.Attendance = defaultAttendance
	}
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64() | 1
	}
	return cfg
}

// students builds the roster. Every student gets uuid-derived handles; every
// fifth has no HackerRank handle so absent handles are exercised too.
func students(cohort string, n int) []model.StudentRecord {
	prefix := strings.ToUpper(strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, cohort))
	if prefix == "" {
		prefix = "S"
	}
	out := make([]model.StudentRecord, n)
	for i := range out {
		h := strings.ReplaceAll(uuid.NewString(), "-", "")[:handleLength]
		out[i] = model.StudentRecord{
			HallTicketNo: fmt.Sprintf("%s%04d", prefix, i+1),
			Name:         fmt.Sprintf("Student %d", i+1),
			Branch:       "CSE",
			Section:      string(rune('A' + i%3)),
			Handles: model.Handles{
				CodechefHandle:      "cc_" + h,
				CodeforcesHandle:    "cf_" + h,
				GeeksforgeeksHandle: "gfg_" + h,
				LeetcodeHandle:      "lc_" + h,
			},
		}
		if i%5 != 4 {
			out[i].HackerrankHandle = "hr_" + h
		}
	}
	return out
}

func writeRoster(ctx context.Context, path string, format sheet.Format, recs []model.StudentRecord) error {
	header := []string{"Hall Ticket No", "Name", "Branch", "Section",
		"Codechef Handle", "Codeforces Handle", "GFG Handle", "HackerRank Handle", "LeetCode Handle"}
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{r.HallTicketNo, r.Name, r.Branch, r.Section,
			r.CodechefHandle, r.CodeforcesHandle, r.GeeksforgeeksHandle, r.HackerrankHandle, r.LeetcodeHandle}
	}
	if err := sheet.Write(ctx, path, format, "Roster", header, rows); err != nil {
		return fmt.Errorf("write roster: %w", err)
	}
	return nil
}

func writeContest(ctx context.Context, path string, cfg Config, idHeader string, recs []model.StudentRecord, profiles []int, seed uint64) (Stats, error) {
	var s Stats
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	rows := make([][]any, 0, len(recs))
	for i, r := range recs {
		if rng.Float64() >= cfg.Attendance {
			s.Skipped++
			continue
		}
		id := r.HallTicketNo
		if len(rows)%noisyIDEvery == noisyIDEvery-1 {
			id = " " + strings.ToLower(id) + " "
			s.Noisy++
		}
		rows = append(rows, []any{id, r.Name, score(rng, profiles[i])})
	}
	s.Rows = len(rows)
	if err := sheet.Write(ctx, path, cfg.Format, "Results", []string{idHeader, "Name", "Total Score"}, rows); err != nil {
		return s, fmt.Errorf("write contest %s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// score draws a contest score for a performer profile, rounded to 0.5.
func score(rng *rand.Rand, profile int) float64 {
	var v float64
	switch profile {
	case caseAveragePerformer:
		v = avgPerformerMin + rng.Float64()*avgPerformerRange
	case caseHighPerformer:
		v = highPerformerMin + rng.Float64()*highPerformerRange
	case caseLowPerformer:
		v = lowPerformerMin + rng.Float64()*lowPerformerRange
	case caseElitePerformer:
		v = elitePerformerMin + rng.Float64()*elitePerformerRange
	case caseVeryLowPerformer:
		v = veryLowMin + rng.Float64()*veryLowRange
	default:
		v = wideRangeMin + rng.Float64()*wideRange
	}
	return math.Round(v*2) / 2
}

func writeConfig(m Manifest, cohort string) error {
	content := fmt.Sprintf(`# generated by gen-contests
contest:
  extensions: [".xlsx", ".csv"]
cohorts:
  %q:
    weekly: [%q]
    monthly: [%q]
`, cohort, m.WeeklyDir, m.MonthlyDir)
	if err := os.WriteFile(m.ConfigPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
