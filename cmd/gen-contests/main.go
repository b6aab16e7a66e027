// Command gen-contests writes a synthetic cohort: a roster, weekly and monthly
// contest spreadsheets, and a config snippet pointing cpboard at them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/cpboard/internal/adapters/sheet"
	"github.com/okian/cpboard/internal/fixtures"
	"github.com/okian/cpboard/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var (
		cfg    fixtures.Config
		format string
	)
	cmd := &cobra.Command{
		Use:          "gen-contests",
		Short:        "Generate a synthetic cohort for cpboard",
		SilenceUsage: true,
		Example: `  gen-contests --dir fixtures --cohort demo --students 200
  gen-contests --format csv --weekly 8 --monthly 2 --seed 42`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			f, err := sheet.FormatOf("x." + format)
			if err != nil {
				return err
			}
			if f == sheet.XLS {
				return fmt.Errorf("%w: xls is read only", sheet.ErrUnsupportedFormat)
			}
			cfg.Format = f

			m, stats, err := fixtures.Generate(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "roster:   %s (%d students)\n", m.RosterPath, len(m.Students))
			fmt.Fprintf(out, "contests: %d files, %d rows, %d noisy ids, %d absences\n",
				len(m.Files), stats.Rows, stats.Noisy, stats.Skipped)
			fmt.Fprintf(out, "config:   %s (seed %d)\n", m.ConfigPath, m.Seed)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfg.Dir, "dir", "fixtures", "output directory")
	flags.StringVar(&cfg.Cohort, "cohort", "demo", "cohort name")
	flags.IntVar(&cfg.Students, "students", 100, "roster size")
	flags.IntVar(&cfg.WeeklyContests, "weekly", 4, "weekly contest files")
	flags.IntVar(&cfg.MonthlyContests, "monthly", 1, "monthly contest files")
	flags.Float64Var(&cfg.Attendance, "attendance", 0.8, "probability a student sits a contest")
	flags.StringVar(&format, "format", "xlsx", "xlsx or csv")
	flags.Uint64Var(&cfg.Seed, "seed", 0, "random seed; 0 picks one")
	flags.IntVar(&cfg.Workers, "workers", 0, "parallel file writers (default CPU count)")
	return cmd
}
