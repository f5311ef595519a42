package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-explorer/pkg/actions"
	"github.com/mattsolo1/grove-explorer/pkg/service"
)

var actionsUlog = grovelogging.NewUnifiedLogger("grove-explorer.cmd.actions")

type actionRow struct {
	Section string `json:"section"`
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	Enabled bool   `json:"enabled"`
}

func NewActionsCmd(svc **service.Service) *cobra.Command {
	var (
		actionsJSON bool
		run         string
	)

	cmd := &cobra.Command{
		Use:   "actions <id>",
		Short: "List or run the actions available on a node",
		Long: `List the context menu of a folder, item or drive, grouped by section.

Examples:
  grove-explorer actions <item-id>                      # List actions
  grove-explorer actions <item-id> --run "copy file's id"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s := *svc

			n, err := s.Locate(ctx, args[0])
			if err != nil {
				return err
			}

			if run != "" {
				if err := s.Run(ctx, n, run); err != nil {
					return err
				}
				actionsUlog.Success("Action executed").
					Field("id", n.ID).
					Field("action", run).
					Pretty(fmt.Sprintf("* %s: %s", run, n.Name)).
					PrettyOnly().
					Emit()
				return nil
			}

			all, err := s.Catalog.Actions(ctx, n)
			if err != nil {
				return err
			}
			rows := actionRows(all)
			if actionsJSON {
				return outputJSON(rows)
			}
			if len(rows) == 0 {
				actionsUlog.Info("No actions").
					Field("id", n.ID).
					Pretty(fmt.Sprintf("No actions available on %s", n.Name)).
					PrettyOnly().
					Log(ctx)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SECTION\tACTION\tENABLED")
			fmt.Fprintln(w, "-------------\t-------------------------\t-------")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%t\n", r.Section, r.Name, r.Enabled)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&actionsJSON, "json", false, "Output in JSON format")
	cmd.Flags().StringVar(&run, "run", "", "Run the named action")

	return cmd
}

func actionRows(all []actions.Action) []actionRow {
	bySection := actions.BySection(all)
	var rows []actionRow
	for _, section := range actions.Sections {
		for _, a := range bySection[section] {
			rows = append(rows, actionRow{
				Section: string(section),
				Name:    a.Name,
				Icon:    a.Icon,
				Enabled: a.Enabled(),
			})
		}
	}
	return rows
}
