package backend_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
	"github.com/mattsolo1/grove-explorer/pkg/backend/backendtest"
)

func newClient(t *testing.T, f *backendtest.Fake) *backend.Client {
	t.Helper()
	srv := backendtest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := backend.NewClient(backend.ClientOptions{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesURL(t *testing.T) {
	_, err := backend.NewClient(backend.ClientOptions{BaseURL: "ftp://example.com"}, nil)
	assert.Error(t, err)

	c, err := backend.NewClient(backend.ClientOptions{BaseURL: "http://localhost:2000/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:2000", c.BaseURL())
}

func TestClientReads(t *testing.T) {
	f := backendtest.Standard()
	c := newClient(t, f)
	ctx := context.Background()

	info, err := c.GetUserInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jane", info.Name)
	require.Len(t, info.Groups, 2)
	assert.Equal(t, "private", info.Groups[0].Path)

	drive, err := c.GetDefaultDrive(ctx, backendtest.PrivateGroup)
	require.NoError(t, err)
	assert.Equal(t, backendtest.PrivateHome, drive.HomeFolderID)

	children, err := c.GetFolderChildren(ctx, backendtest.PrivateGroup, backendtest.PrivateDrive, backendtest.PrivateHome)
	require.NoError(t, err)
	require.Len(t, children.Folders, 1)
	assert.Equal(t, "F1", children.Folders[0].FolderID)
	require.Len(t, children.Items, 1)
	assert.Equal(t, "a.txt", children.Items[0].Name)

	calls := f.Calls("GetFolderChildren")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{backendtest.PrivateGroup, backendtest.PrivateDrive, backendtest.PrivateHome}, calls[0].Args)

	path, err := c.GetPath(ctx, "F1")
	require.NoError(t, err)
	assert.Equal(t, backendtest.PrivateDrive, path.Drive.DriveID)
	require.Len(t, path.Folders, 2)
	assert.Equal(t, backendtest.PrivateHome, path.Folders[0].FolderID)
	assert.Equal(t, "F1", path.Folders[1].FolderID)
}

func TestClientWrites(t *testing.T) {
	f := backendtest.Standard()
	c := newClient(t, f)
	ctx := context.Background()

	folder, err := c.CreateFolder(ctx, backendtest.PrivateHome, backend.CreateFolderRequest{Name: "new folder", FolderID: "N1"})
	require.NoError(t, err)
	assert.Equal(t, "N1", folder.FolderID)
	assert.Equal(t, backendtest.PrivateDrive, folder.DriveID)

	require.NoError(t, c.RenameItem(ctx, "I1", "b.txt"))
	it, ok := f.Item("I1")
	require.True(t, ok)
	assert.Equal(t, "b.txt", it.Name)

	listing, err := c.Move(ctx, "I1", "N1")
	require.NoError(t, err)
	require.Len(t, listing.Items, 1)
	assert.Equal(t, "I1", listing.Items[0].TreeID)

	borrowed, err := c.Borrow(ctx, "I2", backendtest.TeamHome)
	require.NoError(t, err)
	assert.True(t, borrowed.Borrowed)
	assert.Equal(t, "A2", borrowed.AssetID)
	assert.Equal(t, backendtest.TeamGroup, borrowed.GroupID)

	require.NoError(t, c.TrashItem(ctx, "I2"))
	deleted, err := c.GetDeletedItems(ctx, backendtest.PrivateDrive)
	require.NoError(t, err)
	require.Len(t, deleted.Items, 1)
	require.NoError(t, c.PurgeDrive(ctx, backendtest.PrivateDrive))
	deleted, err = c.GetDeletedItems(ctx, backendtest.PrivateDrive)
	require.NoError(t, err)
	assert.Empty(t, deleted.Items)

	require.NoError(t, c.UploadLocalAsset(ctx, "A1"))
	assert.Equal(t, []string{"A1"}, f.Uploads())
}

func TestClientHTTPError(t *testing.T) {
	c := newClient(t, backendtest.Standard())

	_, err := c.GetFolder(context.Background(), "missing")
	require.Error(t, err)
	httpErr, ok := backend.IsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, http.MethodGet, httpErr.Method)
	assert.True(t, backend.IsNotFound(err))
	assert.False(t, backend.IsForbidden(err))
}

func TestClientSendsToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := backend.NewClient(backend.ClientOptions{BaseURL: srv.URL, Token: "secret"}, nil)
	require.NoError(t, err)
	err = c.TrashFolder(context.Background(), "F1")
	assert.True(t, backend.IsForbidden(err))
	assert.Equal(t, "Bearer secret", auth)
	assert.Contains(t, err.Error(), "denied")
}

func TestClientEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/explorer/folders/H/children" {
			_, _ = w.Write([]byte("null"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := backend.NewClient(backend.ClientOptions{BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	folder, err := c.CreateFolder(ctx, "H", backend.CreateFolderRequest{Name: "new folder", FolderID: "N1"})
	assert.ErrorIs(t, err, backend.ErrEmptyResponse)
	assert.Nil(t, folder)

	listing, err := c.Move(ctx, "I1", "F1")
	assert.ErrorIs(t, err, backend.ErrEmptyResponse)
	assert.Nil(t, listing)

	borrowed, err := c.Borrow(ctx, "I1", "F1")
	assert.ErrorIs(t, err, backend.ErrEmptyResponse)
	assert.Nil(t, borrowed)

	_, err = c.GetFolderChildren(ctx, "G", "D", "H")
	assert.ErrorIs(t, err, backend.ErrEmptyResponse)

	// calls without a result accept an empty answer
	assert.NoError(t, c.RenameItem(ctx, "I1", "b.txt"))
	assert.NoError(t, c.TrashFolder(ctx, "F1"))
}

func TestEventStream(t *testing.T) {
	f := backendtest.Standard()
	c := newClient(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := c.Events().WithReconnect(10 * time.Millisecond).Run(ctx)

	// the subscription exists only once the websocket is connected
	require.Eventually(t, func() bool {
		f.Publish(backend.Event{Type: backend.EventFileAdded, TreeID: "I1"})
		select {
		case e := <-events:
			assert.Equal(t, "I1", e.TreeID)
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, open := <-events:
			return !open
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
