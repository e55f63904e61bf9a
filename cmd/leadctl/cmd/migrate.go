package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadwatch/leadwatch/internal/config"
	"github.com/leadwatch/leadwatch/internal/store/pg"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("leadctl: load config: %w", err)
			}

			if err := pg.Migrate(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("leadctl: migrate: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("migrations applied"))
			return nil
		},
	}
}
