// Package fixtures generates synthetic cohorts: a roster with platform
// handles and weekly/monthly Pyramid contest spreadsheets, laid out the way
// cpboard reads them.
package fixtures

import (
	"github.com/okian/cpboard/internal/adapters/sheet"
	"github.com/okian/cpboard/internal/domain/model"
)

// Config holds generation settings.
type Config struct {
	Dir             string       // output root
	Cohort          string       // cohort name, also the batch prefix of hall tickets
	Students        int          // roster size
	WeeklyContests  int          // files under <Dir>/weekly
	MonthlyContests int          // files under <Dir>/monthly
	Attendance      float64      // probability a student appears in a given contest
	Format          sheet.Format // xlsx or csv
	Seed            uint64       // zero picks a random seed
	Workers         int          // parallel file writers
}

// Manifest describes what Generate wrote.
type Manifest struct {
	Seed       uint64
	RosterPath string
	ConfigPath string
	WeeklyDir  string
	MonthlyDir string
	Files      []string
	Students   []model.StudentRecord
}

// Stats holds generation statistics.
type Stats struct {
	Rows    int // contest rows written
	Noisy   int // identifiers written with altered case or padding
	Skipped int // absent (student, contest) pairs
}
