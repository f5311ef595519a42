package favorites

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bt "github.com/mattsolo1/grove-explorer/pkg/backend/backendtest"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestNewRegistryCreatesDatabase(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")

	reg, err := NewRegistry(dataDir)
	require.NoError(t, err)
	defer reg.Close()

	_, err = os.Stat(filepath.Join(dataDir, "favorites.db"))
	assert.NoError(t, err)
}

func TestRegistryPutListDelete(t *testing.T) {
	reg := newRegistry(t)

	require.NoError(t, reg.Put(Favorite{Kind: KindFolder, ID: "F1", Name: "docs", GroupID: "g", DriveID: "d"}))
	require.NoError(t, reg.Put(Favorite{Kind: KindItem, ID: "I1", Name: "a.txt"}))
	require.NoError(t, reg.Put(Favorite{Kind: KindFolder, ID: "F1", Name: "papers", GroupID: "g", DriveID: "d"}))

	list, err := reg.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "papers", list[0].Name)
	assert.Equal(t, "d", list[0].DriveID)
	assert.Empty(t, list[1].GroupID)

	require.NoError(t, reg.Delete(KindItem, "I1"))
	list, err = reg.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Error(t, reg.Put(Favorite{Kind: "bogus", ID: "x"}))
	assert.Error(t, reg.Put(Favorite{Kind: KindItem}))
}

func TestRegistryDeleteIDAcrossKinds(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Put(Favorite{Kind: KindFolder, ID: "same", Name: "f"}))
	require.NoError(t, reg.Put(Favorite{Kind: KindItem, ID: "same", Name: "i"}))
	require.NoError(t, reg.Put(Favorite{Kind: KindItem, ID: "other", Name: "o"}))

	require.NoError(t, reg.DeleteID("same"))

	list, err := reg.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "other", list[0].ID)
}

func TestFacadeToggle(t *testing.T) {
	reg := newRegistry(t)
	facade, err := NewFacade(reg, bt.Standard(), nil)
	require.NoError(t, err)

	var notified int
	cancel := facade.Subscribe(func([]Favorite) { notified++ })
	defer cancel()

	on, err := facade.ToggleFolder(context.Background(), "F1")
	require.NoError(t, err)
	assert.True(t, on)
	on, err = facade.ToggleItem(context.Background(), "I1")
	require.NoError(t, err)
	assert.True(t, on)
	_, err = facade.ToggleGroup(bt.TeamGroup, "team")
	require.NoError(t, err)
	_, err = facade.ToggleApplication("@youwol/stories", "Stories")
	require.NoError(t, err)

	require.Len(t, facade.Folders(), 1)
	assert.Equal(t, "docs", facade.Folders()[0].Name)
	assert.Equal(t, bt.PrivateGroup, facade.Folders()[0].GroupID)
	assert.Equal(t, "a.txt", facade.Items()[0].Name)
	assert.Len(t, facade.Groups(), 1)
	assert.Len(t, facade.Applications(), 1)
	assert.Equal(t, 4, notified)

	on, err = facade.ToggleFolder(context.Background(), "F1")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Empty(t, facade.Folders())

	// a second facade over the same registry sees the persisted state
	reloaded, err := NewFacade(reg, bt.Standard(), nil)
	require.NoError(t, err)
	assert.Len(t, reloaded.All(), 3)
	assert.True(t, reloaded.IsFavorite(KindItem, "I1"))
}

func TestFacadeToggleUnknownFolder(t *testing.T) {
	facade, err := NewFacade(newRegistry(t), bt.Standard(), nil)
	require.NoError(t, err)

	_, err = facade.ToggleFolder(context.Background(), "missing")
	assert.Error(t, err)
	assert.Empty(t, facade.All())
}

func TestFacadeRefreshFollowsRename(t *testing.T) {
	fake := bt.Standard()
	facade, err := NewFacade(newRegistry(t), fake, nil)
	require.NoError(t, err)
	_, err = facade.ToggleItem(context.Background(), "I1")
	require.NoError(t, err)

	require.NoError(t, fake.RenameItem(context.Background(), "I1", "b.txt"))
	facade.Refresh(context.Background(), "I1")
	facade.Refresh(context.Background(), "not-a-favorite")

	assert.Equal(t, "b.txt", facade.Items()[0].Name)
	assert.Equal(t, 2, fake.CallCount("GetItem"))
}

func TestFacadeRemove(t *testing.T) {
	reg := newRegistry(t)
	facade, err := NewFacade(reg, bt.Standard(), nil)
	require.NoError(t, err)
	_, err = facade.ToggleFolder(context.Background(), "F1")
	require.NoError(t, err)

	facade.Remove("F1")

	assert.Empty(t, facade.Folders())
	list, err := reg.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}
