package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-explorer/pkg/service"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

var searchUlog = grovelogging.NewUnifiedLogger("grove-explorer.cmd.search")

// searchResult is a matching node and the names leading to it.
type searchResult struct {
	nodeRow
	Path string `json:"path"`
}

// nodeNames adapts nodes to fuzzy matching on their names.
type nodeNames []*tree.Node

func (n nodeNames) String(i int) string { return n[i].Name }
func (n nodeNames) Len() int            { return len(n) }

func NewSearchCmd(svc **service.Service) *cobra.Command {
	var (
		searchJSON  bool
		searchDepth int
		searchGroup string
		searchLimit int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-find folders and items by name",
		Long: `Search the names of the folders and items of a group.

Folders are loaded down to --depth levels below the group, so deeper
entries are only found with a larger depth.

Examples:
  grove-explorer search notes            # Search the private group
  grove-explorer search rpt -d 5         # Look deeper
  grove-explorer search plan -g <group>  # Search another group`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s := *svc
			query := strings.Join(args, " ")

			tg, err := s.State.Start(ctx)
			if err != nil {
				return err
			}
			if searchGroup != "" {
				if tg, err = s.State.SelectGroup(ctx, searchGroup); err != nil {
					return err
				}
			}
			if err := expand(ctx, tg.Store, tg.Root().ID, searchDepth); err != nil {
				return err
			}

			results := searchTree(tg.Snapshot(), query, searchLimit)
			if searchJSON {
				return outputJSON(results)
			}
			if len(results) == 0 {
				searchUlog.Info("No results found").
					Field("query", query).
					Pretty("No results found").
					PrettyOnly().
					Emit()
				return nil
			}

			searchUlog.Info("Search results").
				Field("query", query).
				Field("result_count", len(results)).
				Pretty(fmt.Sprintf("Found %d results:\n", len(results))).
				PrettyOnly().
				Emit()
			for i, r := range results {
				searchUlog.Info("Search result").
					Field("id", r.ID).
					Pretty(fmt.Sprintf("%d. %s (%s)\n   %s\n   %s", i+1, r.Name, r.Kind, r.Path, r.ID)).
					PrettyOnly().
					Emit()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
	cmd.Flags().IntVarP(&searchDepth, "depth", "d", 3, "Levels of folders to load before searching")
	cmd.Flags().StringVarP(&searchGroup, "group", "g", "", "Search this group id")
	cmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Maximum number of results")

	return cmd
}

// searchTree ranks the loaded folders and items of snap by fuzzy match on
// their names.
func searchTree(snap *tree.Snapshot, query string, limit int) []searchResult {
	var nodes nodeNames
	snap.Walk(func(n *tree.Node, depth int) bool {
		if n.Kind == tree.KindFolder || n.Kind == tree.KindItem {
			nodes = append(nodes, n)
		}
		return true
	})

	matches := fuzzy.FindFrom(query, nodes)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]searchResult, 0, len(matches))
	for _, m := range matches {
		n := nodes[m.Index]
		names := tree.ReducePath(snap, n.ID, func(p *tree.Node) string { return p.Name })
		out = append(out, searchResult{
			nodeRow: rowOf(n),
			Path:    strings.Join(names[:len(names)-1], " / "),
		})
	}
	return out
}
