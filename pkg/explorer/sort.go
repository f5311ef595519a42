package explorer

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

func containerRank(n *tree.Node) int {
	switch n.Kind {
	case tree.KindDrive, tree.KindFolder, tree.KindFutureFolder, tree.KindDeletedFolder:
		return 0
	}
	return 1
}

// SortNodes returns a copy of nodes with folders first, each part ordered by
// name under the collation rules of tag.
func SortNodes(nodes []*tree.Node, tag language.Tag) []*tree.Node {
	c := collate.New(tag, collate.IgnoreCase, collate.Numeric)
	out := append([]*tree.Node(nil), nodes...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := containerRank(out[i]), containerRank(out[j])
		if ri != rj {
			return ri < rj
		}
		return c.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}
