package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	grovelogging "github.com/mattsolo1/grove-core/logging"
)

var hostUlog = grovelogging.NewUnifiedLogger("grove-explorer.cmd.host")

// Host performs the side effects of actions from a terminal: the system
// clipboard, downloads into a directory and application urls printed for
// the user to open.
type Host struct {
	BaseURL     string
	DownloadDir string
	HTTP        *http.Client
}

func NewHost(baseURL string) *Host {
	return &Host{
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		DownloadDir: ".",
		HTTP:        http.DefaultClient,
	}
}

func (h *Host) CopyToClipboard(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	hostUlog.Success("Copied to clipboard").
		Field("text", text).
		Pretty(fmt.Sprintf("* Copied %s", text)).
		PrettyOnly().
		Emit()
	return nil
}

func (h *Host) Download(ctx context.Context, rawURL, filename string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := h.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("download %s: %s", filename, resp.Status)
	}

	path := filepath.Join(h.DownloadDir, filepath.Base(filename))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	hostUlog.Success("Downloaded file").
		Field("path", path).
		Field("bytes", n).
		Pretty(fmt.Sprintf("* Downloaded %s (%s)", path, humanize.Bytes(uint64(n)))).
		PrettyOnly().
		Emit()
	return nil
}

// Launch prints the url of the application instance.
func (h *Host) Launch(ctx context.Context, cdnPackage string, parameters map[string]string) error {
	u := h.ApplicationURL(cdnPackage, parameters)
	hostUlog.Info("Application url").
		Field("package", cdnPackage).
		Field("url", u).
		Pretty(u).
		PrettyOnly().
		Log(ctx)
	return nil
}

// ApplicationURL is where the platform serves cdnPackage with parameters.
func (h *Host) ApplicationURL(cdnPackage string, parameters map[string]string) string {
	q := url.Values{}
	for k, v := range parameters {
		q.Set(k, v)
	}
	u := h.BaseURL + "/applications/" + cdnPackage + "/latest"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}
