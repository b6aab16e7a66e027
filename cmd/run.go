package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/cpboard/internal/domain/model"
	"github.com/okian/cpboard/internal/pipeline"
)

type runFlags struct {
	all          bool
	exportPath   string
	exportFormat string
}

func (c *cli) runCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [cohort...]",
		Short: "Run the full pipeline for one or more cohorts",
		Long: `Run the full pipeline: union the published roster, rebuild the Pyramid
column from contest files, refresh every enabled platform and upload the
scored cohort. With --all every configured cohort is run in order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cohorts := args
			if f.all {
				cohorts = c.cfg.CohortNames()
			}
			if len(cohorts) == 0 {
				return fmt.Errorf("name a cohort or pass --all")
			}
			return c.runCohorts(cmd, cohorts, pipeline.ModeFull, "", f)
		},
	}
	cmd.Flags().BoolVar(&f.all, "all", false, "run every configured cohort")
	addExportFlags(cmd, &f)
	return cmd
}

func (c *cli) pyramidCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "pyramid <cohort>",
		Short: "Rebuild only the Pyramid contest column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCohorts(cmd, args, pipeline.ModePyramid, "", f)
		},
	}
	addExportFlags(cmd, &f)
	return cmd
}

func (c *cli) scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape <cohort> <platform>",
		Short: "Refresh a single platform column",
		Long: `Refresh a single platform column. The platform is a column name such as
codeforcesRating or a short name such as codeforces, gfgweekly or pyramid.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParsePlatform(args[1])
			if err != nil {
				return fmt.Errorf("%w: %w", pipeline.ErrUnknownPlatform, err)
			}
			return c.runCohorts(cmd, args[:1], pipeline.ModePlatform, p, runFlags{})
		},
	}
}

func addExportFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVarP(&f.exportPath, "export", "o", "", "write the Pyramid tier table to this .xlsx or .csv file")
	cmd.Flags().StringVar(&f.exportFormat, "export-format", "", "xlsx or csv; inferred from --export when empty")
}

func (c *cli) runCohorts(cmd *cobra.Command, cohorts []string, mode pipeline.Mode, platform model.Platform, f runFlags) error {
	ctx := cmd.Context()
	svc, err := c.openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Stop()

	exportPath, exportFormat := f.exportPath, f.exportFormat
	if exportPath == "" {
		exportPath, exportFormat = c.cfg.Export.Path, c.cfg.Export.Format
	}

	for _, cohort := range cohorts {
		req := pipeline.Request{
			Cohort:       cohort,
			Mode:         mode,
			Platform:     platform,
			ExportPath:   exportPathFor(exportPath, cohort, len(cohorts)),
			ExportFormat: exportFormat,
		}
		res, err := svc.RunNow(ctx, req)
		if err != nil {
			return fmt.Errorf("cohort %s: %w", cohort, err)
		}
		printResult(cmd.OutOrStdout(), &res)
	}
	return nil
}

// exportPathFor keeps exports of a multi-cohort run apart by suffixing the
// cohort before the extension.
func exportPathFor(path, cohort string, cohorts int) string {
	if path == "" || cohorts < 2 {
		return path
	}
	dot := strings.LastIndex(path, ".")
	if dot < 0 {
		return path + "-" + cohort
	}
	return path[:dot] + "-" + cohort + path[dot:]
}

func printResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "%s %s: %d students scored in %s (run %s)\n",
		res.Cohort, res.Mode, res.Students, res.Duration.Round(time.Millisecond), res.RunID)
	if res.RosterAdded > 0 {
		fmt.Fprintf(w, "  roster: %d students added\n", res.RosterAdded)
	}
	if len(res.Refreshed) > 0 {
		fmt.Fprintf(w, "  refreshed: %s\n", joinPlatforms(res.Refreshed))
	}
	if len(res.Absent) > 0 {
		fmt.Fprintf(w, "  absent (unreachable): %s\n", joinPlatforms(res.Absent))
	}
	if len(res.Records) > 0 {
		top := res.Records[0]
		fmt.Fprintf(w, "  leader: %s (%.2f)\n", top.HallTicketNo, top.Percentile)
	}
	for _, p := range model.Platforms {
		if m := res.Summary.Max[p]; m > 0 {
			fmt.Fprintf(w, "  max %s: %.2f\n", p, m)
		}
	}
}

func joinPlatforms(ps []model.Platform) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
