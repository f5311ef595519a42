//go:build integration

package main

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
	bt "github.com/mattsolo1/grove-explorer/pkg/backend/backendtest"
	"github.com/mattsolo1/grove-explorer/pkg/explorer"
	"github.com/mattsolo1/grove-explorer/pkg/service"
)

func newHTTPService(t *testing.T) (*service.Service, *bt.Fake) {
	t.Helper()
	fake := bt.Standard()
	srv := bt.NewServer(fake)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	svc, err := service.New(context.Background(), &service.Config{
		BackendURL: srv.URL,
		Timeout:    5 * time.Second,
		DataDir:    filepath.Join(dir, "data"),
		Explorer:   explorer.DefaultConfig(),
	}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, fake
}

func TestIntegrationBrowseAndModify(t *testing.T) {
	svc, fake := newHTTPService(t)
	ctx := context.Background()

	tg, err := svc.State.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, bt.PrivateGroup, tg.GroupID)

	item, err := svc.Locate(ctx, "I2")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", item.Name)

	require.NoError(t, svc.Run(ctx, item, "delete"))
	assert.Equal(t, 1, fake.CallCount("TrashItem"))
	assert.Nil(t, tg.Get("I2"))

	folder, err := svc.Locate(ctx, "F1")
	require.NoError(t, err)
	require.NoError(t, svc.Do(func() error { return svc.State.Rename(folder, "papers", true) }))
	stored, ok := fake.Folder("F1")
	require.True(t, ok)
	assert.Equal(t, "papers", stored.Name)
}

func TestIntegrationFileAddedEvent(t *testing.T) {
	svc, fake := newHTTPService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tg, err := svc.State.Start(ctx)
	require.NoError(t, err)
	_, err = tg.ResolveChildren(ctx, bt.PrivateHome)
	require.NoError(t, err)

	var added atomic.Value
	cancelSub := svc.State.SubscribeItemAdded(func(e explorer.ItemAdded) { added.Store(e) })
	defer cancelSub()

	stream := svc.Events()
	require.NotNil(t, stream)
	go svc.State.WatchEvents(ctx, stream.WithReconnect(20*time.Millisecond).Run(ctx))

	fake.AddItem(backend.Item{TreeID: "I3", AssetID: "A3", RawID: "R3", FolderID: bt.PrivateHome, Name: "new.txt", Kind: "data"})
	require.Eventually(t, func() bool {
		fake.Publish(backend.Event{Type: backend.EventFileAdded, TreeID: "I3"})
		return added.Load() != nil
	}, 5*time.Second, 50*time.Millisecond)

	e := added.Load().(explorer.ItemAdded)
	assert.Equal(t, bt.PrivateHome, e.FolderID)
	assert.NotNil(t, tg.Get("I3"))
}
