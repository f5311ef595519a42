package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-explorer/internal/tui/browser"
	"github.com/mattsolo1/grove-explorer/pkg/service"
)

// NewTuiCmd creates the `grove-explorer tui` command.
func NewTuiCmd(svc **service.Service) *cobra.Command {
	var groupID string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse the explorer interactively",
		Long: `Launch an interactive Terminal User Interface over the explorer trees.
The private group is shown first; tab cycles through the other groups.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return fmt.Errorf("TUI mode requires an interactive terminal")
			}

			ctx := context.Background()
			s := *svc
			tg, err := s.State.Start(ctx)
			if err != nil {
				return err
			}
			if groupID != "" {
				if tg, err = s.State.SelectGroup(ctx, groupID); err != nil {
					return err
				}
			}

			p := tea.NewProgram(browser.New(s, tg), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running TUI: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&groupID, "group", "g", "", "Open this group instead of the private one")
	return cmd
}
