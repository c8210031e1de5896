package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print per-status campaign record counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("status"); err != nil {
			return err
		}

		env, err := newStoreEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		counts, err := env.campaignStore.StatusCounts(cmd.Context())
		if err != nil {
			return err
		}

		total := 0
		for _, status := range []model.CallStatus{
			model.StatusQueued,
			model.StatusCalling,
			model.StatusCompleted,
			model.StatusFailed,
			model.StatusSummaryReceived,
		} {
			fmt.Fprintf(cmd.OutOrStdout(), "%-18s %d\n", status, counts[status])
			total += counts[status]
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-18s %d\n", "TOTAL", total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
