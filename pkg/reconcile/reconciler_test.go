package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
	"github.com/mattsolo1/grove-explorer/pkg/backend/backendtest"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

type recordingFavorites struct {
	mu        sync.Mutex
	refreshed []string
	removed   []string
}

func (f *recordingFavorites) Refresh(_ context.Context, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, id)
}

func (f *recordingFavorites) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
}

func (f *recordingFavorites) snapshot() (refreshed, removed []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refreshed...), append([]string(nil), f.removed...)
}

type fixture struct {
	store     *tree.Store
	fake      *backendtest.Fake
	rec       *Reconciler
	favorites *recordingFavorites
}

// newFixture builds group g / drive d / home H holding folder P, and P holds
// regular folder F and item I1.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	item := tree.NewItemNode(tree.ItemParams{GroupID: "g", DriveID: "d", ItemID: "I1", AssetID: "A1", FolderID: "P", Name: "a.txt", Kind: "data"})
	f := tree.NewFolderNode(tree.FolderParams{GroupID: "g", DriveID: "d", FolderID: "F", ParentFolderID: "P", Name: "docs"}, nil, nil)
	p := tree.NewFolderNode(tree.FolderParams{GroupID: "g", DriveID: "d", FolderID: "P", ParentFolderID: "H", Name: "parent"}, []*tree.Node{f, item}, nil)
	home := tree.NewFolderNode(tree.FolderParams{GroupID: "g", DriveID: "d", FolderID: "H", Kind: tree.FolderHome, Name: "home"}, []*tree.Node{p}, nil)
	drive := tree.NewDriveNode("g", "d", "drive", []*tree.Node{home}, nil)
	store, err := tree.NewStore(tree.NewGroupNode("g", "You", tree.GroupUser, []*tree.Node{drive}), nil)
	require.NoError(t, err)

	fake := backendtest.NewFake("jane")
	fake.AddDrive(backend.Drive{GroupID: "g", DriveID: "d", Name: "drive"})
	fake.AddFolder(backend.Folder{FolderID: "H", ParentFolderID: "d", Name: "home"})
	fake.AddFolder(backend.Folder{FolderID: "P", ParentFolderID: "H", Name: "parent"})
	fake.AddFolder(backend.Folder{FolderID: "F", ParentFolderID: "P", Name: "docs"})
	fake.AddItem(backend.Item{TreeID: "I1", AssetID: "A1", FolderID: "P", Name: "a.txt", Kind: "data"})
	favorites := &recordingFavorites{}
	rec := New(context.Background(), fake, nil, append([]Option{WithFavorites(favorites)}, opts...)...)
	rec.Attach(store)
	return &fixture{store: store, fake: fake, rec: rec, favorites: favorites}
}

func pending(n *tree.Node) bool {
	return n.Status().Has(tree.StatusRequestPending)
}

func TestRenameItem(t *testing.T) {
	fx := newFixture(t)
	release := fx.fake.Hold("RenameItem")
	achieved := make(chan struct{})

	name := "b.txt"
	require.NoError(t, fx.store.ReplaceAttributes("I1", tree.Attributes{Name: &name}, tree.OnAchieved(func() { close(achieved) })))

	node := fx.store.Get("I1")
	assert.True(t, pending(node))
	require.Eventually(t, func() bool { return fx.fake.CallCount("RenameItem") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"I1", "b.txt"}, fx.fake.Calls("RenameItem")[0].Args)

	release()
	select {
	case <-achieved:
	case <-time.After(time.Second):
		t.Fatal("OnAchieved not called")
	}
	assert.False(t, pending(node))
	refreshed, _ := fx.favorites.snapshot()
	assert.Equal(t, []string{"I1"}, refreshed)
}

func TestRenameFolder(t *testing.T) {
	fx := newFixture(t)
	name := "renamed"
	require.NoError(t, fx.store.ReplaceAttributes("F", tree.Attributes{Name: &name}))
	fx.rec.Wait()

	calls := fx.fake.Calls("RenameFolder")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"F", "renamed"}, calls[0].Args)
	assert.False(t, pending(fx.store.Get("F")))
}

func TestRenameHomeFolderIsNotSaved(t *testing.T) {
	fx := newFixture(t)
	name := "Home!"
	require.NoError(t, fx.store.ReplaceAttributes("H", tree.Attributes{Name: &name}))
	fx.rec.Wait()
	assert.Zero(t, fx.fake.CallCount("RenameFolder"))
}

func TestDeleteFolderMarksParentPending(t *testing.T) {
	fx := newFixture(t)
	release := fx.fake.Hold("TrashFolder")

	removed := fx.store.Get("F")
	var update tree.Update
	fx.store.Subscribe(func(u tree.Update) { update = u })
	require.True(t, fx.store.RemoveNode("F"))

	rule, ok := Match(update)
	require.True(t, ok)
	assert.Equal(t, "deleteFolder", rule.Name)
	assert.Equal(t, "P", update.Command.ParentNode.ID)
	assert.Equal(t, []*tree.Node{removed}, update.RemovedNodes)

	parent := fx.store.Get("P")
	assert.True(t, pending(parent))
	release()
	fx.rec.Wait()
	assert.False(t, pending(parent))
	assert.Equal(t, []string{"F"}, fx.fake.Calls("TrashFolder")[0].Args)
	_, favRemoved := fx.favorites.snapshot()
	assert.Equal(t, []string{"F"}, favRemoved)
}

func TestDeleteItemAndDrive(t *testing.T) {
	fx := newFixture(t)
	fx.store.RemoveNode("I1")
	fx.store.RemoveNode("d")
	fx.rec.Wait()

	assert.Equal(t, 1, fx.fake.CallCount("TrashItem"))
	assert.Equal(t, 1, fx.fake.CallCount("DeleteDrive"))
	assert.Zero(t, fx.fake.CallCount("TrashFolder"))
}

func TestFailureLeavesPending(t *testing.T) {
	var mu sync.Mutex
	var failedRule string
	fx := newFixture(t, WithErrorHandler(func(rule string, u tree.Update, err error) {
		mu.Lock()
		defer mu.Unlock()
		failedRule = rule
	}))
	fx.fake.Fail("TrashItem", errors.New("forbidden"))
	achieved := false

	require.True(t, fx.store.RemoveNode("I1", tree.OnAchieved(func() { achieved = true })))
	fx.rec.Wait()

	mu.Lock()
	assert.Equal(t, "deleteItem", failedRule)
	mu.Unlock()
	assert.True(t, pending(fx.store.Get("P")), "pending status is never cleared on failure")
	assert.False(t, achieved)
	_, favRemoved := fx.favorites.snapshot()
	assert.Empty(t, favRemoved)
}

func TestToBeSavedFalseNeverCallsBackend(t *testing.T) {
	fx := newFixture(t)
	name := "quiet"
	future := tree.NewFutureItemNode(tree.FutureParams{
		Name: "pending",
		Response: func(ctx context.Context) (any, error) {
			t.Error("response must not be requested")
			return nil, nil
		},
	})

	require.NoError(t, fx.store.ReplaceAttributes("I1", tree.Attributes{Name: &name}, tree.WithoutSave()))
	require.NoError(t, fx.store.ReplaceAttributes("F", tree.Attributes{Name: &name}, tree.WithoutSave()))
	require.NoError(t, fx.store.AddChild("P", future, tree.WithoutSave()))
	require.NoError(t, fx.store.ReplaceNode("I1", tree.NewItemNode(tree.ItemParams{ItemID: "I9"}), tree.WithoutSave()))
	parent := fx.store.Get("P")
	fx.store.RemoveNode("F", tree.WithoutSave())
	fx.store.RemoveNode("d", tree.WithoutSave())
	fx.rec.Wait()

	assert.Empty(t, fx.fake.Calls(""))
	assert.False(t, pending(parent))
}

func TestNewAssetReplacesPlaceholder(t *testing.T) {
	fx := newFixture(t)
	gate := make(chan struct{})
	future := tree.NewFutureFolderNode(tree.FutureParams{
		Name: "new folder",
		Response: func(ctx context.Context) (any, error) {
			<-gate
			return "F2", nil
		},
		OnResponse: func(resp any, placeholder *tree.Node) {
			folder := tree.NewFolderNode(tree.FolderParams{GroupID: "g", DriveID: "d", FolderID: resp.(string), Name: "new folder"}, nil, nil)
			assert.NoError(t, fx.store.ReplaceNode(placeholder.ID, folder, tree.WithoutSave()))
		},
	})
	require.NoError(t, fx.store.AddChild("P", future))

	assert.True(t, pending(future))
	assert.True(t, pending(fx.store.Get("P")))
	assert.NotNil(t, fx.store.Get(future.ID))

	close(gate)
	fx.rec.Wait()
	assert.Nil(t, fx.store.Get(future.ID))
	assert.Equal(t, tree.KindFolder, fx.store.Get("F2").Kind)
	assert.False(t, pending(fx.store.Get("P")))
}

func TestProgressNodesAreNotReconciled(t *testing.T) {
	fx := newFixture(t)
	progress := tree.NewProgressNode(context.Background(), tree.ProgressParams{
		Name:     "upload",
		Response: func(ctx context.Context) (any, error) { return nil, nil },
	})
	var update tree.Update
	fx.store.Subscribe(func(u tree.Update) { update = u })
	require.NoError(t, fx.store.AddChild("P", progress))
	_, ok := Match(update)
	assert.False(t, ok)
}

func TestSingleDispatch(t *testing.T) {
	item := tree.NewItemNode(tree.ItemParams{ItemID: "I"})
	regular := tree.NewFolderNode(tree.FolderParams{FolderID: "F"}, nil, nil)
	trash := tree.NewFolderNodeWithID("trash-d", tree.FolderParams{FolderID: "trash", Kind: tree.FolderTrash}, nil, nil)
	drive := tree.NewDriveNode("g", "d", "d", nil, nil)
	future := tree.NewFutureItemNode(tree.FutureParams{Response: func(context.Context) (any, error) { return nil, nil }})
	parent := tree.NewFolderNode(tree.FolderParams{FolderID: "P"}, nil, nil)

	saved := tree.Metadata{ToBeSaved: true}
	updates := map[string]tree.Update{
		"renameFolder": {Command: tree.Command{Kind: tree.CmdReplaceAttributes, Metadata: saved}, AddedNodes: []*tree.Node{regular}, RemovedNodes: []*tree.Node{regular}},
		"renameItem":   {Command: tree.Command{Kind: tree.CmdReplaceAttributes, Metadata: saved}, AddedNodes: []*tree.Node{item}, RemovedNodes: []*tree.Node{item}},
		"deleteFolder": {Command: tree.Command{Kind: tree.CmdRemoveNode, ParentNode: parent, Metadata: saved}, RemovedNodes: []*tree.Node{regular}},
		"deleteDrive":  {Command: tree.Command{Kind: tree.CmdRemoveNode, ParentNode: parent, Metadata: saved}, RemovedNodes: []*tree.Node{drive}},
		"deleteItem":   {Command: tree.Command{Kind: tree.CmdRemoveNode, ParentNode: parent, Metadata: saved}, RemovedNodes: []*tree.Node{item}},
		"newAsset":     {Command: tree.Command{Kind: tree.CmdAddChild, ParentNode: parent, Metadata: saved}, AddedNodes: []*tree.Node{future}},
		"":             {Command: tree.Command{Kind: tree.CmdRemoveNode, ParentNode: parent, Metadata: saved}, RemovedNodes: []*tree.Node{trash}},
	}
	for expected, u := range updates {
		matching := 0
		for _, rule := range Rules() {
			if rule.When(u) {
				matching++
			}
		}
		rule, ok := Match(u)
		if expected == "" {
			assert.False(t, ok)
			assert.Zero(t, matching)
			continue
		}
		assert.Equal(t, 1, matching, expected)
		assert.Equal(t, expected, rule.Name)

		u.Command.Metadata.ToBeSaved = false
		_, ok = Match(u)
		assert.False(t, ok, "%s must not match when already saved", expected)
	}
}

func TestDebugDelay(t *testing.T) {
	fx := newFixture(t, WithDebugDelay(30*time.Millisecond))
	start := time.Now()
	fx.store.RemoveNode("I1")
	fx.rec.Wait()
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
