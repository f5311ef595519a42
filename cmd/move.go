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

var moveUlog = grovelogging.NewUnifiedLogger("grove-explorer.cmd.move")

func NewMoveCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mv <id> <destination>",
		Short: "Move a folder or an item into another folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return paste(*svc, explorer.CutMove, args[0], args[1])
		},
	}
	return cmd
}

func NewBorrowCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "borrow <id> <destination>",
		Short: "Link an item into another folder",
		Long: `Borrow an item: the item stays where it is and a link to it is
created in the destination folder.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return paste(*svc, explorer.CutBorrow, args[0], args[1])
		},
	}
	return cmd
}

func paste(s *service.Service, cut explorer.CutType, id, destinationID string) error {
	ctx := context.Background()

	n, err := s.Locate(ctx, id)
	if err != nil {
		return err
	}
	dest, err := s.Locate(ctx, destinationID)
	if err != nil {
		return err
	}
	if !dest.IsStandardFolder() {
		return fmt.Errorf("%q is not a folder you can paste into", dest.Name)
	}

	switch {
	case cut == explorer.CutBorrow:
		if n.Kind != tree.KindItem {
			return fmt.Errorf("only items can be borrowed")
		}
		s.State.BorrowItem(n)
	case n.Kind == tree.KindItem || n.IsFolder(tree.FolderRegular):
		s.State.CutItem(n)
	default:
		return fmt.Errorf("%q cannot be moved", n.Name)
	}

	if err := s.Do(func() error {
		_, err := s.State.PasteItem(ctx, dest)
		return err
	}); err != nil {
		return err
	}

	verb := "Moved"
	if cut == explorer.CutBorrow {
		verb = "Borrowed"
	}
	moveUlog.Success(verb).
		Field("id", n.ID).
		Field("destination", dest.ID).
		Pretty(fmt.Sprintf("* %s %s into %s", verb, n.Name, dest.Name)).
		PrettyOnly().
		Emit()
	return nil
}
