package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bt "github.com/mattsolo1/grove-explorer/pkg/backend/backendtest"
	"github.com/mattsolo1/grove-explorer/pkg/explorer"
	"github.com/mattsolo1/grove-explorer/pkg/manifest"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

func newService(t *testing.T) (*Service, *bt.Fake) {
	t.Helper()
	dir := t.TempDir()
	fake := bt.Standard()
	cfg := &Config{
		BackendURL:   "http://localhost:2000",
		DataDir:      filepath.Join(dir, "data"),
		ManifestPath: filepath.Join(dir, "manifest.yaml"),
		Applications: []manifest.Application{{CDNPackage: "@youwol/viewer", DisplayName: "Viewer"}},
		Explorer:     explorer.DefaultConfig(),
	}
	svc, err := NewWithExecutor(context.Background(), cfg, fake, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, fake
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), &Config{BackendURL: "ftp://nowhere", DataDir: t.TempDir()}, nil, nil)
	assert.Error(t, err)
}

func TestNewMergesInlineApplications(t *testing.T) {
	svc, _ := newService(t)
	assert.Equal(t, []string{"@youwol/viewer"}, svc.Manifests.Current().Packages())
}

func TestLocate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	item, err := svc.Locate(ctx, "I2")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", item.Name)
	assert.Equal(t, "F1", svc.State.CurrentFolder().Folder.ID)

	folder, err := svc.Locate(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, tree.KindFolder, folder.Kind)

	drive, err := svc.Locate(ctx, bt.ExtraDrive)
	require.NoError(t, err)
	assert.Equal(t, tree.KindDrive, drive.Kind)

	_, err = svc.Locate(ctx, "missing")
	assert.ErrorIs(t, err, tree.ErrNotFound)
}

func TestRunDelete(t *testing.T) {
	svc, fake := newService(t)
	ctx := context.Background()
	n, err := svc.Locate(ctx, "I1")
	require.NoError(t, err)

	require.NoError(t, svc.Run(ctx, n, "delete"))

	assert.Equal(t, 1, fake.CallCount("TrashItem"))
	assert.Nil(t, svc.State.Group(bt.PrivateGroup).Get("I1"))
}

func TestRunReportsBackendFailure(t *testing.T) {
	svc, fake := newService(t)
	ctx := context.Background()
	fake.Fail("TrashItem", errors.New("boom"))
	n, err := svc.Locate(ctx, "I1")
	require.NoError(t, err)

	err = svc.Run(ctx, n, "delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRunUnknownAction(t *testing.T) {
	svc, _ := newService(t)
	n, err := svc.Locate(context.Background(), "I1")
	require.NoError(t, err)

	err = svc.Run(context.Background(), n, "fly")
	assert.ErrorIs(t, err, ErrNotActionable)
}
