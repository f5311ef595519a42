package explorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

func TestSortNodes(t *testing.T) {
	item := func(id, name string) *tree.Node {
		return tree.NewItemNode(tree.ItemParams{ItemID: id, Name: name, Kind: "data"})
	}
	folder := func(id, name string) *tree.Node {
		return tree.NewFolderNode(tree.FolderParams{FolderID: id, Name: name}, nil, nil)
	}
	nodes := []*tree.Node{
		item("i10", "file10"),
		folder("fb", "beta"),
		item("i2", "File2"),
		folder("fa", "Alpha"),
		item("ie", "éclair"),
	}

	sorted := SortNodes(nodes, language.French)

	assert.Equal(t, []string{"fa", "fb", "i2", "i10", "ie"}, ids(sorted))
	assert.Equal(t, "i10", nodes[0].ID, "input is left untouched")
}
