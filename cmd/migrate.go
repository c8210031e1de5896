package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the store schema or header rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		env, err := newStoreEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		// Database backends create tables; the sheets backend writes header
		// rows instead.
		if env.migrator != nil {
			if err := env.migrator.Migrate(cmd.Context()); err != nil {
				return err
			}
			zap.L().Info("schema migrated", zap.String("driver", cfg.Store.Driver))
			return nil
		}

		if err := env.campaignStore.EnsureHeaders(cmd.Context()); err != nil {
			return err
		}
		if err := env.resultStore.EnsureHeaders(cmd.Context()); err != nil {
			return err
		}
		zap.L().Info("sheet headers ensured",
			zap.String("campaign_tab", cfg.Sheets.CampaignTab),
			zap.String("results_tab", cfg.Sheets.ResultsTab),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
