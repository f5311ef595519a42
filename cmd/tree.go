package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-explorer/pkg/explorer"
	"github.com/mattsolo1/grove-explorer/pkg/service"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

var treeUlog = grovelogging.NewUnifiedLogger("grove-explorer.cmd.tree")

func NewTreeCmd(svc **service.Service) *cobra.Command {
	var (
		treeJSON  bool
		treeDepth int
		treeGroup string
	)

	cmd := &cobra.Command{
		Use:   "tree [id]",
		Short: "Print a group tree",
		Long: `Print the tree of a group, or the subtree below a node.

Folders are loaded down to --depth levels below the starting node.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s := *svc

			var start *tree.Node
			switch {
			case len(args) > 0:
				n, err := s.Locate(ctx, args[0])
				if err != nil {
					return err
				}
				start = n
			case treeGroup != "":
				tg, err := s.State.SelectGroup(ctx, treeGroup)
				if err != nil {
					return err
				}
				start = tg.Root()
			default:
				tg, err := s.State.Start(ctx)
				if err != nil {
					return err
				}
				start = tg.Root()
			}

			tg := s.State.Group(start.GroupID)
			if err := expand(ctx, tg.Store, start.ID, treeDepth); err != nil {
				return err
			}
			start = tg.Get(start.ID)

			if treeJSON {
				out, err := tree.Serialize(start)
				if err != nil {
					return fmt.Errorf("serialize tree: %w", err)
				}
				treeUlog.Info("Tree").
					Field("root", start.ID).
					Pretty(out).
					PrettyOnly().
					Log(ctx)
				return nil
			}

			var b strings.Builder
			printTree(&b, start, 0, s.Config.Explorer.Language)
			treeUlog.Info("Tree").
				Field("root", start.ID).
				Pretty(strings.TrimRight(b.String(), "\n")).
				PrettyOnly().
				Log(ctx)
			return nil
		},
	}

	cmd.Flags().BoolVar(&treeJSON, "json", false, "Output in JSON format")
	cmd.Flags().IntVarP(&treeDepth, "depth", "d", 2, "Levels of folders to load")
	cmd.Flags().StringVarP(&treeGroup, "group", "g", "", "Print the tree of this group id")

	return cmd
}

// expand resolves the containers below id down to depth levels.
func expand(ctx context.Context, store *tree.Store, id string, depth int) error {
	if depth <= 0 {
		return nil
	}
	n := store.Get(id)
	if n == nil || !isContainer(n) {
		return nil
	}
	children, err := store.ResolveChildren(ctx, id)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := expand(ctx, store, c.ID, depth-1); err != nil {
			return err
		}
	}
	return nil
}

func printTree(b *strings.Builder, n *tree.Node, depth int, tag language.Tag) {
	fmt.Fprintf(b, "%s%s  %s\n", strings.Repeat("  ", depth), n.Name, n.ID)
	for _, c := range explorer.SortNodes(n.Children(), tag) {
		printTree(b, c, depth+1, tag)
	}
}
