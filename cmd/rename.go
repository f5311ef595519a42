package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-explorer/pkg/service"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

var renameUlog = grovelogging.NewUnifiedLogger("grove-explorer.cmd.rename")

func NewRenameCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a folder or an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s := *svc

			n, err := s.Locate(ctx, args[0])
			if err != nil {
				return err
			}
			if n.Kind != tree.KindItem && !n.IsFolder(tree.FolderRegular) {
				return fmt.Errorf("%q cannot be renamed", n.Name)
			}
			if err := s.Run(ctx, n, "rename"); err != nil {
				return err
			}
			if err := s.Do(func() error { return s.State.Rename(n, args[1], true) }); err != nil {
				return err
			}

			renameUlog.Success("Renamed").
				Field("id", n.ID).
				Field("from", n.Name).
				Field("to", args[1]).
				Pretty(fmt.Sprintf("* Renamed %s to %s", n.Name, args[1])).
				PrettyOnly().
				Emit()
			return nil
		},
	}
	return cmd
}
