package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-explorer/pkg/service"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

var listUlog = grovelogging.NewUnifiedLogger("grove-explorer.cmd.list")

func NewListCmd(svc **service.Service) *cobra.Command {
	var listJSON bool

	cmd := &cobra.Command{
		Use:     "ls [folder]",
		Short:   "List the content of a folder",
		Aliases: []string{"list"},
		Long: `List the folders and items of a folder, drive or trash.

Without an argument the home folder of your private group is listed.

Examples:
  grove-explorer ls                    # List your home folder
  grove-explorer ls <folder-id>        # List a folder
  grove-explorer ls trash-<drive-id>   # List the trash of a drive`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s := *svc

			folder, err := locateOrHome(ctx, s, args)
			if err != nil {
				return err
			}
			if !isContainer(folder) {
				return fmt.Errorf("%q is not a folder", folder.Name)
			}
			children, err := resolvedChildren(ctx, s, folder)
			if err != nil {
				return err
			}

			if len(children) == 0 {
				pretty := fmt.Sprintf("%s is empty", folder.Name)
				if listJSON {
					pretty = "[]"
				}
				listUlog.Info("Folder is empty").
					Field("folder", folder.ID).
					Pretty(pretty).
					PrettyOnly().
					Log(ctx)
				return nil
			}

			if listJSON {
				rows := make([]nodeRow, 0, len(children))
				for _, c := range children {
					rows = append(rows, rowOf(c))
				}
				return outputJSON(rows)
			}
			printNodesTable(children)
			return nil
		},
	}

	cmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")

	return cmd
}

// isContainer reports whether n can hold children in a listing.
func isContainer(n *tree.Node) bool {
	return n.Kind == tree.KindGroup || n.Kind == tree.KindDrive || n.Kind == tree.KindFolder
}
