package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mattsolo1/grove-explorer/pkg/explorer"
	"github.com/mattsolo1/grove-explorer/pkg/service"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

// locateOrHome returns the node named by args[0], or the private home.
func locateOrHome(ctx context.Context, s *service.Service, args []string) (*tree.Node, error) {
	if len(args) > 0 {
		return s.Locate(ctx, args[0])
	}
	tg, err := s.State.Start(ctx)
	if err != nil {
		return nil, err
	}
	return tg.HomeNode(), nil
}

// resolvedChildren lists the children of n, loading them if needed.
func resolvedChildren(ctx context.Context, s *service.Service, n *tree.Node) ([]*tree.Node, error) {
	tg := s.State.Group(n.GroupID)
	if tg == nil {
		return nil, fmt.Errorf("%w: %q", explorer.ErrGroupNotLoaded, n.GroupID)
	}
	children, err := tg.ResolveChildren(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	return explorer.SortNodes(children, s.Config.Explorer.Language), nil
}

type nodeRow struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

func rowOf(n *tree.Node) nodeRow {
	row := nodeRow{ID: n.ID, Name: n.Name, Kind: n.Kind.String()}
	switch {
	case n.Folder != nil:
		row.Detail = string(n.Folder.Kind)
	case n.Item != nil:
		row.Detail = n.Item.Kind
		if n.Item.Borrowed {
			row.Detail += " (borrowed)"
		}
	case n.Deleted != nil:
		row.Detail = n.Deleted.Kind
	}
	return row
}

func printNodesTable(nodes []*tree.Node) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "NAME\tKIND\tDETAIL\tID")
	fmt.Fprintln(w, "-----------------------------\t-------\t--------\t------------------------------------")

	for _, n := range nodes {
		row := rowOf(n)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", truncateString(row.Name, 29), row.Kind, row.Detail, row.ID)
	}

	w.Flush()
}

func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func truncateString(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
