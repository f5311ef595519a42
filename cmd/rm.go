package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-explorer/pkg/service"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

var rmUlog = grovelogging.NewUnifiedLogger("grove-explorer.cmd.rm")

func NewRmCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Move a folder or an item to the trash, or delete a drive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s := *svc

			n, err := s.Locate(ctx, args[0])
			if err != nil {
				return err
			}
			action := "delete"
			if n.Kind == tree.KindDrive {
				action = "delete drive"
			}
			if err := s.Run(ctx, n, action); err != nil {
				return err
			}

			rmUlog.Success("Deleted").
				Field("id", n.ID).
				Field("kind", n.Kind.String()).
				Pretty(fmt.Sprintf("* Deleted %s", n.Name)).
				PrettyOnly().
				Emit()
			return nil
		},
	}
	return cmd
}
