package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadwatch/leadwatch/internal/bootstrap"
)

func newRunOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "run a single collect-and-classify tick and print its result",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := bootstrap.Build(ctx)
			if err != nil {
				return fmt.Errorf("leadctl: bootstrap: %w", err)
			}
			defer app.Close(context.Background())

			record := app.Scheduler.RunOnce(ctx)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headingStyle.Render("tick result"))
			fmt.Fprintf(out, "channels collected: %d\n", record.ChannelsCollected)
			fmt.Fprintf(out, "messages collected: %d\n", record.MessagesCollected)
			fmt.Fprintf(out, "rules processed:    %d\n", record.RulesProcessed)
			fmt.Fprintf(out, "leads created:      %d\n", record.LeadsCreated)
			fmt.Fprintf(out, "duration:           %s\n", record.FinishedAt.Sub(record.StartedAt))
			if record.Err != "" {
				fmt.Fprintln(out, errStyle.Render("error: "+record.Err))
				return fmt.Errorf("tick completed with an error: %s", record.Err)
			}
			fmt.Fprintln(out, okStyle.Render("ok"))
			return nil
		},
	}
}
