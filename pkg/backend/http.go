package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultHTTPTimeout        = 60 * time.Second
	defaultHTTPConnectTimeout = 5 * time.Second
	defaultHTTPTLSTimeout     = 5 * time.Second
)

func defaultClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	dialer := &net.Dialer{
		Timeout: defaultHTTPConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHTTPTLSTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ClientOptions configures an HTTP Client.
type ClientOptions struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default transport, e.g. for tests.
	HTTPClient *http.Client
}

// Client talks to the explorer backend over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *logrus.Entry
}

var _ Executor = (*Client)(nil)

func NewClient(opts ClientOptions, logger *logrus.Entry) (*Client, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", opts.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = defaultClient(opts.Timeout)
	}
	return &Client{
		baseURL: strings.TrimRight(base.String(), "/"),
		token:   opts.Token,
		http:    httpClient,
		logger:  logger.WithField("component", "backend"),
	}, nil
}

// BaseURL returns the normalized backend url.
func (c *Client) BaseURL() string { return c.baseURL }

func call[R any](ctx context.Context, c *Client, method, path string, args any) (R, error) {
	var result R
	var body io.Reader
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return result, err
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return result, err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	if c.token != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	start := time.Now()
	r, err := c.http.Do(req)
	if err != nil {
		return result, fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer r.Body.Close()

	responseBody, err := io.ReadAll(r.Body)
	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   r.StatusCode,
		"duration": time.Since(start),
	}).Debug("backend call")

	if r.StatusCode < 200 || r.StatusCode > 299 {
		return result, &HTTPError{
			StatusCode: r.StatusCode,
			Method:     method,
			URL:        u,
			Message:    strings.TrimSpace(string(responseBody)),
		}
	}
	if err != nil {
		return result, err
	}
	if trimmed := bytes.TrimSpace(responseBody); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		if _, ok := any(result).(empty); ok {
			return result, nil
		}
		return result, fmt.Errorf("%w from %s %s", ErrEmptyResponse, method, u)
	}
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return result, fmt.Errorf("decode %s %s: %w", method, u, err)
	}
	return result, nil
}

// empty is the result type of calls whose body is ignored.
type empty struct{}

func p(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}

func (c *Client) GetUserInfo(ctx context.Context) (*UserInfo, error) {
	return call[*UserInfo](ctx, c, http.MethodGet, "/explorer/users/info", nil)
}

func (c *Client) GetDefaultDrive(ctx context.Context, groupID string) (*DefaultDrive, error) {
	return call[*DefaultDrive](ctx, c, http.MethodGet, p("/explorer/groups/%s/default-drive", groupID), nil)
}

func (c *Client) GetDrivesChildren(ctx context.Context, groupID string) (*Drives, error) {
	return call[*Drives](ctx, c, http.MethodGet, p("/explorer/groups/%s/drives", groupID), nil)
}

func (c *Client) GetFolderChildren(ctx context.Context, groupID, driveID, folderID string) (*Children, error) {
	path := p("/explorer/folders/%s/children", folderID)
	q := url.Values{}
	q.Set("groupId", groupID)
	q.Set("driveId", driveID)
	return call[*Children](ctx, c, http.MethodGet, path+"?"+q.Encode(), nil)
}

func (c *Client) GetDeletedItems(ctx context.Context, driveID string) (*Children, error) {
	return call[*Children](ctx, c, http.MethodGet, p("/explorer/drives/%s/deleted", driveID), nil)
}

func (c *Client) GetFolder(ctx context.Context, folderID string) (*Folder, error) {
	return call[*Folder](ctx, c, http.MethodGet, p("/explorer/folders/%s", folderID), nil)
}

func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	return call[*Item](ctx, c, http.MethodGet, p("/explorer/items/%s", itemID), nil)
}

func (c *Client) GetPath(ctx context.Context, folderID string) (*Path, error) {
	return call[*Path](ctx, c, http.MethodGet, p("/explorer/folders/%s/path", folderID), nil)
}

func (c *Client) GetPermissions(ctx context.Context, assetID string) (*Permissions, error) {
	return call[*Permissions](ctx, c, http.MethodGet, p("/assets/%s/permissions", assetID), nil)
}

func (c *Client) CreateFolder(ctx context.Context, parentID string, req CreateFolderRequest) (*Folder, error) {
	return call[*Folder](ctx, c, http.MethodPut, p("/explorer/folders/%s", parentID), req)
}

type renameBody struct {
	Name string `json:"name"`
}

func (c *Client) RenameFolder(ctx context.Context, folderID, name string) error {
	_, err := call[empty](ctx, c, http.MethodPost, p("/explorer/folders/%s", folderID), renameBody{Name: name})
	return err
}

func (c *Client) RenameItem(ctx context.Context, itemID, name string) error {
	_, err := call[empty](ctx, c, http.MethodPost, p("/explorer/items/%s", itemID), renameBody{Name: name})
	return err
}

func (c *Client) TrashFolder(ctx context.Context, folderID string) error {
	_, err := call[empty](ctx, c, http.MethodDelete, p("/explorer/folders/%s", folderID), nil)
	return err
}

func (c *Client) TrashItem(ctx context.Context, itemID string) error {
	_, err := call[empty](ctx, c, http.MethodDelete, p("/explorer/items/%s", itemID), nil)
	return err
}

func (c *Client) DeleteDrive(ctx context.Context, driveID string) error {
	_, err := call[empty](ctx, c, http.MethodDelete, p("/explorer/drives/%s", driveID), nil)
	return err
}

func (c *Client) PurgeDrive(ctx context.Context, driveID string) error {
	_, err := call[empty](ctx, c, http.MethodDelete, p("/explorer/drives/%s/purge", driveID), nil)
	return err
}

type moveBody struct {
	TargetID            string `json:"targetId"`
	DestinationFolderID string `json:"destinationFolderId"`
}

func (c *Client) Move(ctx context.Context, targetID, destinationID string) (*Children, error) {
	return call[*Children](ctx, c, http.MethodPost, "/explorer/move", moveBody{TargetID: targetID, DestinationFolderID: destinationID})
}

type borrowBody struct {
	DestinationFolderID string `json:"destinationFolderId"`
}

func (c *Client) Borrow(ctx context.Context, itemID, destinationID string) (*Item, error) {
	return call[*Item](ctx, c, http.MethodPost, p("/explorer/items/%s/borrow", itemID), borrowBody{DestinationFolderID: destinationID})
}

func (c *Client) UploadLocalAsset(ctx context.Context, assetID string) error {
	_, err := call[empty](ctx, c, http.MethodPost, p("/admin/upload/%s", assetID), nil)
	return err
}
