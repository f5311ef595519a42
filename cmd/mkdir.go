package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-explorer/pkg/service"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

var mkdirUlog = grovelogging.NewUnifiedLogger("grove-explorer.cmd.mkdir")

func NewMkdirCmd(svc **service.Service) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "mkdir <parent>",
		Short: "Create a folder",
		Long: `Create a folder under a folder or drive. The folder is named "new folder"
unless --name is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s := *svc

			parent, err := s.Locate(ctx, args[0])
			if err != nil {
				return err
			}
			before, err := resolvedChildren(ctx, s, parent)
			if err != nil {
				return err
			}
			if err := s.Do(func() error {
				_, err := s.State.NewFolder(ctx, parent)
				return err
			}); err != nil {
				return err
			}

			created := newChild(before, s.State.Group(parent.GroupID).Snapshot().Children(parent.ID))
			if created == nil {
				return fmt.Errorf("folder was not created under %q", parent.Name)
			}
			if name != "" {
				if err := s.Do(func() error { return s.State.Rename(created, name, true) }); err != nil {
					return err
				}
			}

			mkdirUlog.Success("Folder created").
				Field("id", created.ID).
				Field("parent", parent.ID).
				Pretty(fmt.Sprintf("* Created folder %s", created.ID)).
				PrettyOnly().
				Emit()
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the new folder")

	return cmd
}

func newChild(before, after []*tree.Node) *tree.Node {
	seen := make(map[string]bool, len(before))
	for _, n := range before {
		seen[n.ID] = true
	}
	for _, n := range after {
		if !seen[n.ID] && n.Kind == tree.KindFolder {
			return n
		}
	}
	return nil
}
