package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) rosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage cohort rosters",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <cohort> <file>",
		Short: "Append students from a roster spreadsheet that are not stored yet",
		Long: `Append students from a roster .xlsx or .csv file. The identifier column is
found by its header (hall ticket, roll number and close variants); name,
branch, section and platform handle columns are picked up when present.
Students already stored are left untouched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Stop()

			added, err := svc.ImportRoster(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d students added\n", args[0], added)
			return nil
		},
	})
	return cmd
}
