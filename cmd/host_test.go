package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationURL(t *testing.T) {
	h := NewHost("http://localhost:2000/")
	assert.Equal(t, "http://localhost:2000/applications/@youwol/stories/latest",
		h.ApplicationURL("@youwol/stories", nil))
	assert.Equal(t, "http://localhost:2000/applications/@youwol/viewer/latest?file=R1&mode=ro",
		h.ApplicationURL("@youwol/viewer", map[string]string{"mode": "ro", "file": "R1"}))
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/R1" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	h := NewHost(srv.URL)
	h.DownloadDir = t.TempDir()

	require.NoError(t, h.Download(context.Background(), srv.URL+"/files/R1", "../a.txt"))
	data, err := os.ReadFile(filepath.Join(h.DownloadDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	err = h.Download(context.Background(), srv.URL+"/files/missing", "b.txt")
	assert.ErrorContains(t, err, "404")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "a long...", truncateString("a long name", 9))
}
