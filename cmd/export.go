package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/cpboard/internal/adapters/export"
)

func (c *cli) exportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <cohort> <path>",
		Short: "Write the ranked leaderboard of a cohort to .xlsx or .csv",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cohort, path := args[0], args[1]

			f, err := export.FormatFor(path, format)
			if err != nil {
				return err
			}
			svc, err := c.openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Stop()

			records, err := svc.Leaderboard(ctx, cohort)
			if err != nil {
				return fmt.Errorf("read leaderboard of %s: %w", cohort, err)
			}
			if err := export.Leaderboard(ctx, path, f, records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d students written to %s\n", cohort, len(records), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "xlsx or csv; inferred from the path when empty")
	return cmd
}
