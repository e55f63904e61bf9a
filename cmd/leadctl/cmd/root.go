package cmd

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// NewRootCmd returns the root leadctl command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "leadctl",
		Short:         "leadctl — operator CLI for the leadwatch worker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunOnceCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newTickHistoryCmd())

	return root
}
