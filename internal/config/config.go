// Package config defines cpboard configuration structures and loading hooks.
//
// Conventions:
//   - Defaults come from New(); Load layers a YAML file and environment on top.
//   - Cohorts, contest directories and weights are passed explicitly into the
//     pipeline; nothing here is process-wide state.
//   - External errors are wrapped with this package's sentinel errors.
package config

import (
	"sort"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// LogFile, when set, additionally writes logs to a rotated file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address for serve mode, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// QueueSize bounds the in-memory run request queue.
	QueueSize int `koanf:"queue_size" validate:"gt=0"`

	// WorkerCount sets the number of run workers.
	WorkerCount int `koanf:"worker_count" validate:"gt=0"`

	// DedupeSize bounds the number of tracked pending/running run requests.
	DedupeSize int `koanf:"dedupe_size" validate:"gt=0"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" validate:"gt=0"`

	// ScheduleInterval enqueues a full run for every cohort periodically. Zero disables it.
	ScheduleInterval time.Duration `koanf:"schedule_interval" validate:"gte=0"`

	// Cohorts maps a cohort name to its contest directories and roster source.
	Cohorts map[string]CohortConfig `koanf:"cohorts" validate:"dive"`

	Contest ContestConfig `koanf:"contest"`
	Scraper ScraperConfig `koanf:"scraper"`
	Store   StoreConfig   `koanf:"store"`
	Export  ExportConfig  `koanf:"export"`

	// Weights maps a platform column name to its weight in the Percentile sum.
	Weights map[string]float64 `koanf:"weights" validate:"dive,gte=0"`

	// TierWeights combines the normalized weekly and monthly Pyramid tiers.
	TierWeights TierWeights `koanf:"tier_weights"`
}

// CohortConfig describes one roster partition.
type CohortConfig struct {
	Weekly    []string `koanf:"weekly"`
	Monthly   []string `koanf:"monthly"`
	RosterURL string   `koanf:"roster_url" validate:"omitempty,url"`
}

// ContestConfig controls contest file ingestion and aggregation.
type ContestConfig struct {
	// Policy is "max" (best score wins) or "sum" (participation volume).
	Policy string `koanf:"policy" validate:"oneof=max sum"`

	// Extensions is the file extension allowlist, lower-case with the leading dot.
	Extensions []string `koanf:"extensions" validate:"min=1,dive,startswith=."`

	// Recursive walks contest directories; false reads only the top level.
	Recursive bool `koanf:"recursive"`

	// PerContestNormalize rescales each file by its own maximum before combining.
	PerContestNormalize bool `koanf:"per_contest_normalize"`

	// HeaderTolerance is the Levenshtein distance accepted for identifier headers.
	HeaderTolerance int `koanf:"header_tolerance" validate:"gte=0,lte=3"`

	// Concurrency bounds parallel file reads within one tier.
	Concurrency int `koanf:"concurrency" validate:"gt=0"`
}

// ScraperConfig controls the external platform collaborators.
type ScraperConfig struct {
	// Enabled lists the scrapers run by a full pipeline run.
	Enabled []string `koanf:"enabled" validate:"dive,oneof=codechef codeforces geeksforgeeks hackerrank leetcode"`

	Timeout       time.Duration `koanf:"timeout" validate:"gt=0"`
	RatePerSecond float64       `koanf:"rate_per_second" validate:"gt=0"`
	Burst         int           `koanf:"burst" validate:"gt=0"`
	MaxAttempts   int           `koanf:"max_attempts" validate:"gt=0"`
	BaseDelay     time.Duration `koanf:"base_delay" validate:"gte=0"`
	MaxDelay      time.Duration `koanf:"max_delay" validate:"gtefield=BaseDelay"`
	JitterPercent float64       `koanf:"jitter_percent" validate:"gte=0,lte=1"`
	BatchSize     int           `koanf:"batch_size" validate:"gt=0"`
	UserAgent     string        `koanf:"user_agent"`

	CodechefURL      string `koanf:"codechef_url" validate:"url"`
	CodeforcesURL    string `koanf:"codeforces_url" validate:"url"`
	GeeksforgeeksURL string `koanf:"geeksforgeeks_url" validate:"url"`
	HackerrankURL    string `koanf:"hackerrank_url" validate:"url"`
	LeetcodeURL      string `koanf:"leetcode_url" validate:"url"`
}

// StoreConfig selects the persistence driver.
type StoreConfig struct {
	// Driver is memory, file or postgres.
	Driver string `koanf:"driver" validate:"oneof=memory file postgres"`

	// Dir holds one JSON document per cohort for the file driver.
	Dir string `koanf:"dir" validate:"required_if=Driver file"`

	// DSN is the PostgreSQL connection string for the postgres driver.
	DSN string `koanf:"dsn" validate:"required_if=Driver postgres"`

	// Table is the PostgreSQL table name.
	Table string `koanf:"table" validate:"required_if=Driver postgres"`

	MaxConns       int32         `koanf:"max_conns" validate:"gte=0"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gte=0"`
}

// ExportConfig controls the optional intermediate export written by a run.
type ExportConfig struct {
	// Path is the export file; empty disables the export.
	Path string `koanf:"path"`

	// Format is xlsx or csv; empty infers it from Path.
	Format string `koanf:"format" validate:"omitempty,oneof=xlsx csv"`
}

// TierWeights weighs the Pyramid weekly and monthly tiers.
type TierWeights struct {
	Weekly  float64 `koanf:"weekly" validate:"gte=0"`
	Monthly float64 `koanf:"monthly" validate:"gte=0"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           64,
		WorkerCount:         1,
		DedupeSize:          1024,
		MaxLeaderboardLimit: 500,
		Cohorts:             map[string]CohortConfig{},
		Contest: ContestConfig{
			Policy:          "max",
			Extensions:      []string{".xlsx", ".xls"},
			Recursive:       true,
			HeaderTolerance: 1,
			Concurrency:     4,
		},
		Scraper: ScraperConfig{
			Enabled:          []string{"codechef", "codeforces", "geeksforgeeks", "hackerrank", "leetcode"},
			Timeout:          15 * time.Second,
			RatePerSecond:    2,
			Burst:            2,
			MaxAttempts:      3,
			BaseDelay:        500 * time.Millisecond,
			MaxDelay:         10 * time.Second,
			JitterPercent:    0.2,
			BatchSize:        100,
			UserAgent:        "cpboard/1.0",
			CodechefURL:      "https://www.codechef.com/users",
			CodeforcesURL:    "https://codeforces.com/api",
			GeeksforgeeksURL: "https://www.geeksforgeeks.org/user",
			HackerrankURL:    "https://www.hackerrank.com/rest/hackers",
			LeetcodeURL:      "https://leetcode.com/graphql",
		},
		Store: StoreConfig{
			Driver:         "memory",
			Dir:            "data",
			Table:          "students",
			MaxConns:       4,
			ConnectTimeout: 5 * time.Second,
		},
		Weights: map[string]float64{
			"codechefRating":              0.10,
			"codeforcesRating":            0.25,
			"geeksforgeeksWeeklyRating":   0.25,
			"geeksforgeeksPracticeRating": 0.10,
			"leetcodeRating":              0.075,
			"hackerrankRating":            0.075,
			"pyramidRating":               0.15,
		},
		TierWeights: TierWeights{Weekly: 0.05, Monthly: 0.10},
	}
}

// Cohort returns the configuration of the named cohort.
func (c *Config) Cohort(name string) (CohortConfig, bool) {
	cc, ok := c.Cohorts[name]
	return cc, ok
}

// CohortNames returns the configured cohort names, sorted.
func (c *Config) CohortNames() []string {
	names := make([]string, 0, len(c.Cohorts))
	for name := range c.Cohorts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
