package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-explorer/pkg/explorer"
	"github.com/mattsolo1/grove-explorer/pkg/service"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

var purgeUlog = grovelogging.NewUnifiedLogger("grove-explorer.cmd.purge")

func NewPurgeCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge <drive>",
		Short: "Empty the trash of a drive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s := *svc

			n, err := s.Locate(ctx, args[0])
			if err != nil {
				return err
			}
			if n.Kind != tree.KindDrive && !n.IsTrash() {
				return fmt.Errorf("%q is not a drive", n.Name)
			}
			trash := n
			if n.Kind == tree.KindDrive {
				trash = s.State.Group(n.GroupID).Get(explorer.TrashNodeID(n.DriveID))
				if trash == nil {
					return fmt.Errorf("drive %q has no trash", n.Name)
				}
			}
			deleted, err := resolvedChildren(ctx, s, trash)
			if err != nil {
				return err
			}
			if err := s.Run(ctx, trash, "clear trash"); err != nil {
				return err
			}

			purgeUlog.Success("Trash emptied").
				Field("drive", trash.DriveID).
				Field("count", len(deleted)).
				Pretty(fmt.Sprintf("* Purged %d entries from %s", len(deleted), n.Name)).
				PrettyOnly().
				Emit()
			return nil
		},
	}
	return cmd
}
