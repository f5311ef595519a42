package tree

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func folder(id, name string, children ...*Node) *Node {
	return NewFolderNode(FolderParams{GroupID: "g", DriveID: "d", FolderID: id, Name: name}, children, nil)
}

func item(id, name string) *Node {
	return NewItemNode(ItemParams{GroupID: "g", DriveID: "d", ItemID: id, AssetID: "asset-" + id, Name: name, Kind: "data"})
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	home := NewFolderNode(FolderParams{GroupID: "g", DriveID: "d", FolderID: "H", Name: "home", Kind: FolderHome},
		[]*Node{folder("F", "docs", item("I1", "a.txt")), item("I2", "b.txt"), item("I3", "c.txt")}, nil)
	drive := NewDriveNode("g", "d", "drive", []*Node{home}, nil)
	root := NewGroupNode("g", "You", GroupUser, []*Node{drive})
	s, err := NewStore(root, nil)
	require.NoError(t, err)
	return s
}

func collect(s *Store) *[]Update {
	var mu sync.Mutex
	updates := &[]Update{}
	s.Subscribe(func(u Update) {
		mu.Lock()
		defer mu.Unlock()
		*updates = append(*updates, u)
	})
	return updates
}

func childIDs(nodes []*Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func assertUniqueIDs(t *testing.T, snap *Snapshot) {
	t.Helper()
	seen := map[string]bool{}
	snap.Walk(func(n *Node, _ int) bool {
		assert.False(t, seen[n.ID], "duplicate id %s", n.ID)
		seen[n.ID] = true
		return true
	})
}

func TestAddChild(t *testing.T) {
	s := newTestStore(t)
	updates := collect(s)
	before := s.Snapshot()

	child := item("I4", "d.txt")
	require.NoError(t, s.AddChild("H", child))

	assert.Equal(t, []string{"F", "I2", "I3", "I4"}, childIDs(s.Snapshot().Children("H")))
	assert.Equal(t, []string{"F", "I2", "I3"}, childIDs(before.Children("H")), "previous snapshot must not change")
	require.Len(t, *updates, 1)
	u := (*updates)[0]
	assert.Equal(t, CmdAddChild, u.Command.Kind)
	assert.Equal(t, "H", u.Command.ParentNode.ID)
	assert.True(t, u.Command.Metadata.ToBeSaved)
	assert.Equal(t, []*Node{child}, u.AddedNodes)
	assert.Same(t, s.Get("H"), s.Snapshot().Parent("I4"))
}

func TestAddChildUnknownParent(t *testing.T) {
	s := newTestStore(t)
	err := s.AddChild("nope", item("X", "x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nope", nf.ID)
}

func TestAddChildDuplicateID(t *testing.T) {
	s := newTestStore(t)
	updates := collect(s)
	err := s.AddChild("F", item("I2", "copy"))
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Empty(t, *updates)
	assertUniqueIDs(t, s.Snapshot())
}

func TestAddChildUnresolvedParent(t *testing.T) {
	s := newTestStore(t)
	lazy := NewFolderNode(FolderParams{FolderID: "L", Name: "lazy"}, nil, func(ctx context.Context) ([]*Node, error) {
		return nil, nil
	})
	require.NoError(t, s.AddChild("H", lazy))
	assert.ErrorIs(t, s.AddChild("L", item("X", "x")), ErrUnresolved)
}

func TestRemoveNode(t *testing.T) {
	s := newTestStore(t)
	updates := collect(s)

	assert.True(t, s.RemoveNode("F"))
	assert.Nil(t, s.Get("F"))
	assert.Nil(t, s.Get("I1"), "subtree is detached")
	require.Len(t, *updates, 1)
	u := (*updates)[0]
	assert.Equal(t, CmdRemoveNode, u.Command.Kind)
	assert.Equal(t, "H", u.Command.ParentNode.ID)
	require.Len(t, u.RemovedNodes, 1)
	assert.Equal(t, "F", u.RemovedNodes[0].ID)

	t.Run("missing id is a no-op", func(t *testing.T) {
		assert.False(t, s.RemoveNode("F"))
		assert.Len(t, *updates, 1)
	})
	t.Run("root is never removed", func(t *testing.T) {
		assert.False(t, s.RemoveNode("g"))
		assert.NotNil(t, s.Get("g"))
	})
}

func TestReplacePreservesPosition(t *testing.T) {
	s := newTestStore(t)
	updates := collect(s)

	replacement := item("I9", "z.txt")
	require.NoError(t, s.ReplaceNode("I2", replacement, WithoutSave()))

	assert.Equal(t, []string{"F", "I9", "I3"}, childIDs(s.Snapshot().Children("H")))
	assert.Nil(t, s.Get("I2"))
	require.Len(t, *updates, 1)
	u := (*updates)[0]
	assert.Equal(t, CmdReplace, u.Command.Kind)
	assert.False(t, u.Command.Metadata.ToBeSaved)
	assert.Equal(t, "I2", u.RemovedNodes[0].ID)
	assert.Equal(t, "I9", u.AddedNodes[0].ID)

	assert.ErrorIs(t, s.ReplaceNode("missing", item("Q", "q")), ErrNotFound)
}

func TestReplaceCarriesExpandedFlag(t *testing.T) {
	s := newTestStore(t)
	s.Expand("H", "F")

	require.NoError(t, s.ReplaceNode("F", folder("F2", "docs", item("I1", "a.txt")), WithoutSave()))
	assert.True(t, s.IsExpanded("F2"))
	assert.False(t, s.IsExpanded("F"))
	assert.Equal(t, []string{"H", "F2"}, s.Expanded()[len(s.Expanded())-2:])

	require.NoError(t, s.ReplaceNode("I2", item("I9", "z.txt")))
	assert.False(t, s.IsExpanded("I9"))
}

func TestReplaceWithMerge(t *testing.T) {
	s := newTestStore(t)
	err := s.ReplaceNode("I2", item("I2", "renamed"), WithMerge(func(old, updated *Node) *Node {
		updated.Icon = old.Icon + "!"
		return updated
	}))
	require.NoError(t, err)
	assert.Equal(t, "fas fa-database!", s.Get("I2").Icon)
}

func TestReplaceAttributesKeepsStatusAndChildren(t *testing.T) {
	s := newTestStore(t)
	updates := collect(s)
	old := s.Get("F")
	old.AddStatus(StatusCut, "")

	name := "renamed"
	achieved := false
	require.NoError(t, s.ReplaceAttributes("F", Attributes{Name: &name}, OnAchieved(func() { achieved = true })))

	renamed := s.Get("F")
	assert.Equal(t, "renamed", renamed.Name)
	assert.Equal(t, "docs", old.Name)
	assert.Equal(t, []string{"I1"}, childIDs(renamed.Children()))
	assert.True(t, renamed.Status().Has(StatusCut))
	assert.Same(t, old.Status(), renamed.Status())

	require.Len(t, *updates, 1)
	u := (*updates)[0]
	assert.Equal(t, CmdReplaceAttributes, u.Command.Kind)
	u.Achieved()
	assert.True(t, achieved)
}

func TestSilentEdits(t *testing.T) {
	s := newTestStore(t)
	updates := collect(s)
	require.NoError(t, s.AddChild("H", item("I5", "e"), Silent()))
	assert.True(t, s.RemoveNode("I5", Emit(false)))
	assert.Empty(t, *updates)
}

func TestResolveChildren(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	var pendingDuringLoad bool
	var lazy *Node
	lazy = NewFolderNode(FolderParams{FolderID: "L", Name: "lazy"}, nil, func(ctx context.Context) ([]*Node, error) {
		calls++
		pendingDuringLoad = lazy.Status().Has(StatusRequestPending)
		return []*Node{item("L1", "one"), item("I2", "duplicate of an existing id"), item("L2", "two")}, nil
	})
	require.NoError(t, s.AddChild("H", lazy))
	updates := collect(s)

	children, err := s.ResolveChildren(context.Background(), "L")
	require.NoError(t, err)
	assert.Equal(t, []string{"L1", "L2"}, childIDs(children))
	assert.True(t, pendingDuringLoad)
	assert.False(t, lazy.Status().Has(StatusRequestPending))
	assert.Empty(t, *updates, "resolution does not emit")
	assert.NotNil(t, s.Get("L1"))
	assertUniqueIDs(t, s.Snapshot())

	_, err = s.ResolveChildren(context.Background(), "L")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "resolved children are cached")
}

func TestResolveChildrenError(t *testing.T) {
	s := newTestStore(t)
	boom := errors.New("boom")
	lazy := NewFolderNode(FolderParams{FolderID: "L", Name: "lazy"}, nil, func(ctx context.Context) ([]*Node, error) {
		return nil, boom
	})
	require.NoError(t, s.AddChild("H", lazy))
	_, err := s.ResolveChildren(context.Background(), "L")
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Get("L").Resolved())
}

func TestResolvePathAndSelect(t *testing.T) {
	s := newTestStore(t)
	lazy := NewFolderNode(FolderParams{FolderID: "L", Name: "lazy"}, nil, func(ctx context.Context) ([]*Node, error) {
		return []*Node{folder("L1", "deep")}, nil
	})
	require.NoError(t, s.AddChild("F", lazy))

	nodes, err := s.ResolvePath(context.Background(), []string{"g", "d", "H", "F", "L", "L1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"g", "d", "H", "F", "L", "L1"}, childIDs(nodes))

	var selected *Node
	s.SubscribeSelected(func(n *Node) { selected = n })
	require.NoError(t, s.SelectNodeAndExpand("L1"))
	assert.Equal(t, "L1", selected.ID)
	assert.Equal(t, "L1", s.Selected().ID)
	for _, id := range []string{"g", "d", "H", "F", "L"} {
		assert.True(t, s.IsExpanded(id), id)
	}
	assert.False(t, s.IsExpanded("L1"))

	names := ReducePath(s.Snapshot(), "L1", func(n *Node) string { return n.Name })
	assert.Equal(t, []string{"You", "drive", "home", "docs", "lazy", "deep"}, names)
}

func TestUpdatesAreFIFOWithReentrantEdits(t *testing.T) {
	s := newTestStore(t)
	var order []string
	s.Subscribe(func(u Update) {
		if u.Command.Kind == CmdAddChild && u.AddedNodes[0].ID == "A" {
			require.NoError(t, s.AddChild("H", item("B", "b")))
		}
	})
	s.Subscribe(func(u Update) {
		order = append(order, u.AddedNodes[0].ID)
	})
	require.NoError(t, s.AddChild("H", item("A", "a")))
	require.NoError(t, s.AddChild("H", item("C", "c")))
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestIDUniquenessAcrossEdits(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddChild("F", item("I6", "f")))
	assert.ErrorIs(t, s.ReplaceNode("I6", item("I3", "clash")), ErrDuplicateID)
	require.NoError(t, s.ReplaceNode("I6", item("I7", "ok")))
	s.RemoveNode("I3")
	require.NoError(t, s.AddChild("H", item("I3", "back")))
	assertUniqueIDs(t, s.Snapshot())
}

func TestSerialize(t *testing.T) {
	s := newTestStore(t)
	out, err := Serialize(s.Get("F"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"F","name":"docs","kind":"folder","icon":"fas fa-folder","children":[
		{"id":"I1","name":"a.txt","kind":"item","icon":"fas fa-database","children":[]}]}`, out)
}
