package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadwatch/leadwatch/internal/config"
	"github.com/leadwatch/leadwatch/internal/store/pg"
)

func newTickHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "tick-history",
		Short: "list recent scheduler ticks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("leadctl: load config: %w", err)
			}

			db, err := pg.Open(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("leadctl: open database: %w", err)
			}
			defer db.Close()

			st := pg.NewStore(db)
			ticks, err := st.TickHistory.ListRecentTicks(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("leadctl: list ticks: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(ticks) == 0 {
				fmt.Fprintln(out, "no ticks recorded yet")
				return nil
			}

			fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("%-20s %-12s %-10s %-10s %-8s", "started", "duration", "messages", "leads", "status")))
			for _, t := range ticks {
				status := okStyle.Render("ok")
				if t.Err != "" {
					status = errStyle.Render("error")
				}
				fmt.Fprintf(out, "%-20s %-12s %-10d %-10d %s\n",
					t.StartedAt.Format("2006-01-02 15:04:05"),
					t.FinishedAt.Sub(t.StartedAt),
					t.MessagesCollected,
					t.LeadsCreated,
					status,
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of ticks to list")
	return cmd
}
