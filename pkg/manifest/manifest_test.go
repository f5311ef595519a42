package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

const sample = `
applications:
  - cdnPackage: "@youwol/stories"
    displayName: Stories
    parametrizations:
      - name: (edit)
        match: {kind: story}
        parameters: {id: assetId}
        default: true
  - cdnPackage: "@youwol/viewer"
    displayName: Viewer
    parametrizations:
      - match: {kind: data, name: '.*\.(txt|md)'}
        parameters: {file: rawId, mode: read-only}
contextMenuActions:
  - name: publish
    icon: fas fa-share
    match: {kind: story, borrowed: "false"}
    application: "@youwol/stories"
    parameters: {id: assetId, publish: "true"}
`

func item(name, kind string) *tree.Node {
	return tree.NewItemNode(tree.ItemParams{
		GroupID: "g", DriveID: "d", ItemID: "I1", AssetID: "A1", RawID: "R1",
		FolderID: "F1", Name: name, Kind: kind,
	})
}

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Len(t, m.Applications, 2)
	assert.Equal(t, "Stories", m.Applications[0].DisplayName)
	assert.Equal(t, []string{"@youwol/stories", "@youwol/viewer"}, m.Packages())
	require.Len(t, m.ContextMenuActions, 1)
	assert.Equal(t, "publish", m.ContextMenuActions[0].Name)
}

func TestParseRejectsBadPattern(t *testing.T) {
	_, err := Parse([]byte(`
applications:
  - cdnPackage: x
    parametrizations:
      - match: {name: "("}
`))
	assert.Error(t, err)

	_, err = Parse([]byte(`applications: [{displayName: nameless}]`))
	assert.Error(t, err)
}

func TestEvaluateMatch(t *testing.T) {
	n := item("notes.txt", "data")
	tests := []struct {
		name  string
		match map[string]string
		want  bool
	}{
		{"all hold", map[string]string{"kind": "data", "name": `.*\.txt`}, true},
		{"whole value", map[string]string{"kind": "dat"}, false},
		{"one fails", map[string]string{"kind": "data", "name": `.*\.md`}, false},
		{"unknown attribute", map[string]string{"color": "red"}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateMatch(n, tt.match))
		})
	}

	folder := tree.NewFolderNode(tree.FolderParams{FolderID: "F", Name: "f"}, nil, nil)
	assert.False(t, EvaluateMatch(folder, map[string]string{"name": "f"}))
}

func TestEvaluateParameters(t *testing.T) {
	got := EvaluateParameters(item("notes.txt", "data"), map[string]string{"file": "rawId", "mode": "read-only"})
	assert.Equal(t, map[string]string{"file": "R1", "mode": "read-only"}, got)
}

func TestOpeningApps(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	apps := m.OpeningApps(item("notes.txt", "data"))
	require.Len(t, apps, 1)
	assert.Equal(t, "@youwol/viewer", apps[0].App.CDNPackage)

	assert.Empty(t, m.OpeningApps(item("image.png", "data")))

	def, ok := m.DefaultOpeningApp(item("tale", "story"))
	require.True(t, ok)
	assert.Equal(t, "(edit)", def.Parametrization.Name)

	actions := m.ContextMenuActionsFor(item("tale", "story"))
	require.Len(t, actions, 1)
	assert.Equal(t, map[string]string{"id": "A1", "publish": "true"}, EvaluateParameters(item("tale", "story"), actions[0].Parameters))
}

func TestMergeKeepsDeclaredApplications(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	m.Merge([]Application{{CDNPackage: "@youwol/stories", DisplayName: "Other"}, {CDNPackage: "@youwol/cli"}})

	assert.Equal(t, []string{"@youwol/cli", "@youwol/stories", "@youwol/viewer"}, m.Packages())
	assert.Equal(t, "Stories", m.Applications[0].DisplayName)
}

func TestLoadMissingFile(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, m.Applications)
}

func TestSourceWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`applications: []`), 0o644))

	src, err := NewSource(path, []Application{{CDNPackage: "@inline/app"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"@inline/app"}, src.Current().Packages())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan *Manifest, 4)
	require.NoError(t, src.Watch(ctx, func(m *Manifest) { reloaded <- m }))

	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	select {
	case m := <-reloaded:
		assert.Equal(t, []string{"@inline/app", "@youwol/stories", "@youwol/viewer"}, m.Packages())
	case <-time.After(5 * time.Second):
		t.Fatal("manifest was not reloaded")
	}
}
