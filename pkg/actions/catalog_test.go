package actions

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
	bt "github.com/mattsolo1/grove-explorer/pkg/backend/backendtest"
	"github.com/mattsolo1/grove-explorer/pkg/explorer"
	"github.com/mattsolo1/grove-explorer/pkg/favorites"
	"github.com/mattsolo1/grove-explorer/pkg/manifest"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

type recordingHost struct {
	copied    []string
	downloads []string
}

func (h *recordingHost) Download(_ context.Context, url, _ string) error {
	h.downloads = append(h.downloads, url)
	return nil
}

func (h *recordingHost) CopyToClipboard(text string) error {
	h.copied = append(h.copied, text)
	return nil
}

type staticManifest struct{ m *manifest.Manifest }

func (s staticManifest) Current() *manifest.Manifest { return s.m }

type recordingLauncher struct{ packages []string }

func (l *recordingLauncher) Launch(_ context.Context, pkg string, _ map[string]string) error {
	l.packages = append(l.packages, pkg)
	return nil
}

type fixture struct {
	fake      *bt.Fake
	state     *explorer.State
	tg        *explorer.TreeGroup
	catalog   *Catalog
	host      *recordingHost
	favorites *favorites.Facade
	launcher  *recordingLauncher
}

func newFixture(t *testing.T, cfg explorer.Config, m *manifest.Manifest) *fixture {
	t.Helper()
	fake := bt.Standard()
	fake.AddItem(backend.Item{TreeID: "L1", AssetID: "AL", RawID: "RL", FolderID: bt.PrivateHome, Name: "local.txt", Kind: "data", Origin: &backend.Origin{Local: true}})
	fake.AddItem(backend.Item{TreeID: "R9", AssetID: "AR", RawID: "RR", FolderID: bt.PrivateHome, Name: "remote.txt", Kind: "data", Origin: &backend.Origin{Local: false, Remote: true}})
	launcher := &recordingLauncher{}
	state := explorer.New(context.Background(), fake, nil, explorer.WithConfig(cfg), explorer.WithLauncher(launcher))
	tg, err := state.Start(context.Background())
	require.NoError(t, err)
	_, err = tg.ResolveChildren(context.Background(), bt.PrivateHome)
	require.NoError(t, err)

	reg, err := favorites.NewRegistry(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	facade, err := favorites.NewFacade(reg, fake, nil)
	require.NoError(t, err)

	if m == nil {
		m = &manifest.Manifest{}
	}
	host := &recordingHost{}
	catalog := NewCatalog(state, nil,
		WithFavorites(facade),
		WithManifest(staticManifest{m}),
		WithHost(host),
		WithBaseURL("https://platform.example/"),
	)
	return &fixture{fake: fake, state: state, tg: tg, catalog: catalog, host: host, favorites: facade, launcher: launcher}
}

func (fx *fixture) actions(t *testing.T, id string) []Action {
	t.Helper()
	all, err := fx.catalog.Actions(context.Background(), fx.tg.Get(id))
	require.NoError(t, err)
	return all
}

func names(all []Action) []string {
	out := make([]string, 0, len(all))
	for _, a := range all {
		out = append(out, a.Name)
	}
	sort.Strings(out)
	return out
}

func enabled(t *testing.T, all []Action, name string) bool {
	t.Helper()
	a, ok := Find(all, name)
	require.True(t, ok, "action %q not found", name)
	return a.Enabled()
}

func TestItemActions(t *testing.T) {
	fx := newFixture(t, explorer.DefaultConfig(), nil)

	all := fx.actions(t, "I1")

	assert.Equal(t, []string{
		"add to desktop", "borrow item", "copy asset's id", "copy explorer's id",
		"copy file's id", "copy file's url", "cut", "delete", "download file", "rename",
	}, names(all))
	assert.True(t, enabled(t, all, "rename"))
	assert.True(t, enabled(t, all, "borrow item"))
	assert.Equal(t, []string{"A1"}, callArgs(fx.fake, "GetPermissions"))
}

func callArgs(fake *bt.Fake, method string) []string {
	var out []string
	for _, c := range fake.Calls(method) {
		out = append(out, c.Args...)
	}
	return out
}

func TestItemPermissions(t *testing.T) {
	fx := newFixture(t, explorer.DefaultConfig(), nil)
	fx.fake.SetPermissions("A1", backend.Permissions{Read: true, Write: false, Share: true})

	all := fx.actions(t, "I1")

	assert.False(t, enabled(t, all, "rename"))
	assert.False(t, enabled(t, all, "delete"))
	assert.False(t, enabled(t, all, "cut"))
	assert.True(t, enabled(t, all, "borrow item"))
}

func TestRemoteOriginIsReadOnly(t *testing.T) {
	fx := newFixture(t, explorer.DefaultConfig(), nil)

	all := fx.actions(t, "R9")

	assert.False(t, enabled(t, all, "rename"))
	assert.False(t, enabled(t, all, "borrow item"))
	assert.Empty(t, fx.fake.Calls("GetPermissions"))
}

func TestUploadNeedsLocalBackend(t *testing.T) {
	fx := newFixture(t, explorer.DefaultConfig(), nil)
	assert.NotContains(t, names(fx.actions(t, "L1")), "upload asset")

	cfg := explorer.DefaultConfig()
	cfg.Local = true
	fx = newFixture(t, cfg, nil)
	assert.Contains(t, names(fx.actions(t, "L1")), "upload asset")
	assert.NotContains(t, names(fx.actions(t, "I1")), "upload asset")
}

func TestFolderActions(t *testing.T) {
	fx := newFixture(t, explorer.DefaultConfig(), nil)

	all := fx.actions(t, "F1")
	assert.Equal(t, []string{"add to favorites", "cut", "delete", "new folder", "refresh", "rename"}, names(all))
	assert.True(t, enabled(t, all, "rename"))
	// cut requires item permissions, which folders never have
	assert.False(t, enabled(t, all, "cut"))

	home := fx.actions(t, bt.PrivateHome)
	assert.Equal(t, []string{"add to favorites", "cut", "new folder", "refresh"}, names(home))

	trash := fx.actions(t, fx.tg.TrashFolderID)
	assert.Equal(t, []string{"add to favorites", "clear trash", "refresh"}, names(trash))

	drive := fx.actions(t, bt.ExtraDrive)
	assert.Equal(t, []string{"delete drive", "new folder"}, names(drive))
}

func TestNoActionsOnPlaceholdersDeletedAndGroups(t *testing.T) {
	fx := newFixture(t, explorer.DefaultConfig(), nil)
	future := tree.NewFutureItemNode(tree.FutureParams{Name: "pending"})
	deleted := tree.NewDeletedItemNode("D1", bt.PrivateDrive, "old.txt", "data")

	for _, n := range []*tree.Node{future, deleted, fx.tg.Root()} {
		all, err := fx.catalog.Actions(context.Background(), n)
		require.NoError(t, err)
		assert.Empty(t, all, n.Kind.String())
		assert.Empty(t, fx.catalog.Compute(n, Permissions{Group: GroupPermissions{Write: true}}))
	}
}

func TestPasteFollowsClipboard(t *testing.T) {
	fx := newFixture(t, explorer.DefaultConfig(), nil)
	assert.NotContains(t, names(fx.actions(t, "F1")), "paste")

	cut, ok := Find(fx.actions(t, "I1"), "cut")
	require.True(t, ok)
	require.NoError(t, cut.Exe(context.Background()))

	paste, ok := Find(fx.actions(t, "F1"), "paste")
	require.True(t, ok)
	require.NoError(t, paste.Exe(context.Background()))
	fx.state.Wait()

	assert.Equal(t, "F1", fx.tg.Snapshot().Parent("I1").ID)
}

func TestHostActions(t *testing.T) {
	fx := newFixture(t, explorer.DefaultConfig(), nil)
	all := fx.actions(t, "I1")

	for _, name := range []string{"copy file's id", "copy explorer's id", "copy asset's id", "copy file's url", "download file"} {
		a, ok := Find(all, name)
		require.True(t, ok)
		require.NoError(t, a.Exe(context.Background()), name)
	}

	assert.Equal(t, []string{"R1", "I1", "A1", "https://platform.example/api/assets-gateway/files-backend/files/R1"}, fx.host.copied)
	assert.Equal(t, []string{"https://platform.example/api/assets-gateway/raw/data/R1"}, fx.host.downloads)
}

func TestFavoriteToggles(t *testing.T) {
	fx := newFixture(t, explorer.DefaultConfig(), nil)

	add, ok := Find(fx.actions(t, "F1"), "add to favorites")
	require.True(t, ok)
	require.NoError(t, add.Exe(context.Background()))

	all := fx.actions(t, "F1")
	assert.Contains(t, names(all), "un-favorite")
	assert.NotContains(t, names(all), "add to favorites")

	desk, ok := Find(fx.actions(t, "I1"), "add to desktop")
	require.True(t, ok)
	require.NoError(t, desk.Exe(context.Background()))
	assert.Contains(t, names(fx.actions(t, "I1")), "remove from desktop")
	assert.Len(t, fx.favorites.All(), 2)
}

func TestManifestActions(t *testing.T) {
	m := &manifest.Manifest{
		Applications: []manifest.Application{{
			CDNPackage:  "@youwol/viewer",
			DisplayName: "Viewer",
			Parametrizations: []manifest.Parametrization{
				{Name: "(text)", Match: map[string]string{"name": `.*\.txt`}},
				{Match: map[string]string{"kind": "data"}},
				{Match: map[string]string{"kind": "package"}},
			},
		}},
		ContextMenuActions: []manifest.ContextMenuAction{{
			Name:        "publish",
			Icon:        "fas fa-share",
			Match:       map[string]string{"kind": "data"},
			Application: "@youwol/publisher",
		}},
	}
	fx := newFixture(t, explorer.DefaultConfig(), m)

	all := fx.actions(t, "I1")
	open := BySection(all)[SectionOpen]
	assert.Equal(t, []string{"Viewer", "Viewer (text)"}, names(open))
	custom := BySection(all)[SectionCustomActions]
	require.Len(t, custom, 1)

	require.NoError(t, open[0].Exe(context.Background()))
	require.NoError(t, custom[0].Exe(context.Background()))
	assert.Equal(t, []string{"@youwol/viewer", "@youwol/publisher"}, fx.launcher.packages)

	assert.Empty(t, BySection(fx.actions(t, "F1"))[SectionOpen])
}
