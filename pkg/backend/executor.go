// Package backend describes the remote explorer service and provides an HTTP
// implementation of it.
package backend

import "context"

// Origin mirrors tree.Origin on the wire.
type Origin struct {
	Local  bool `json:"local"`
	Remote bool `json:"remote"`
}

type Group struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type UserInfo struct {
	Name   string  `json:"name"`
	Groups []Group `json:"groups"`
}

// DefaultDrive describes a group's default drive and its well-known folders.
type DefaultDrive struct {
	GroupID            string `json:"groupId"`
	DriveID            string `json:"driveId"`
	DriveName          string `json:"driveName"`
	HomeFolderID       string `json:"homeFolderId"`
	HomeFolderName     string `json:"homeFolderName"`
	DownloadFolderID   string `json:"downloadFolderId"`
	DownloadFolderName string `json:"downloadFolderName"`
	SystemFolderID     string `json:"systemFolderId"`
	SystemFolderName   string `json:"systemFolderName"`
}

type Drive struct {
	GroupID string `json:"groupId"`
	DriveID string `json:"driveId"`
	Name    string `json:"name"`
}

type Drives struct {
	Drives []Drive `json:"drives"`
}

type Folder struct {
	FolderID       string  `json:"folderId"`
	ParentFolderID string  `json:"parentFolderId"`
	DriveID        string  `json:"driveId"`
	GroupID        string  `json:"groupId"`
	Name           string  `json:"name"`
	Metadata       string  `json:"metadata"`
	Origin         *Origin `json:"origin,omitempty"`
}

// Item is an entry of a folder pointing at an asset. TreeID identifies the
// entry itself; several entries may point at one asset when it is borrowed.
type Item struct {
	TreeID   string  `json:"treeId"`
	AssetID  string  `json:"assetId"`
	RawID    string  `json:"rawId"`
	FolderID string  `json:"folderId"`
	DriveID  string  `json:"driveId"`
	GroupID  string  `json:"groupId"`
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Borrowed bool    `json:"borrowed"`
	Metadata string  `json:"metadata"`
	Origin   *Origin `json:"origin,omitempty"`
}

// Children is the content of a folder, or of a drive's trash.
type Children struct {
	Folders []Folder `json:"folders"`
	Items   []Item   `json:"items"`
}

type CreateFolderRequest struct {
	Name     string `json:"name"`
	FolderID string `json:"folderId"`
}

// Path locates a folder: its drive and the folders from the drive root down
// to the folder itself.
type Path struct {
	Drive   Drive    `json:"drive"`
	Folders []Folder `json:"folders"`
}

type Permissions struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
	Share bool `json:"share"`
}

// Executor runs the remote calls the explorer needs. Every call is a single
// shot; failed calls return an error, HTTP failures as *HTTPError.
type Executor interface {
	GetUserInfo(ctx context.Context) (*UserInfo, error)
	GetDefaultDrive(ctx context.Context, groupID string) (*DefaultDrive, error)
	GetDrivesChildren(ctx context.Context, groupID string) (*Drives, error)

	GetFolderChildren(ctx context.Context, groupID, driveID, folderID string) (*Children, error)
	GetDeletedItems(ctx context.Context, driveID string) (*Children, error)
	GetFolder(ctx context.Context, folderID string) (*Folder, error)
	GetItem(ctx context.Context, itemID string) (*Item, error)
	GetPath(ctx context.Context, folderID string) (*Path, error)
	GetPermissions(ctx context.Context, assetID string) (*Permissions, error)

	CreateFolder(ctx context.Context, parentID string, req CreateFolderRequest) (*Folder, error)
	RenameFolder(ctx context.Context, folderID, name string) error
	RenameItem(ctx context.Context, itemID, name string) error
	TrashFolder(ctx context.Context, folderID string) error
	TrashItem(ctx context.Context, itemID string) error
	DeleteDrive(ctx context.Context, driveID string) error
	PurgeDrive(ctx context.Context, driveID string) error
	// Move relocates an item or folder and returns the destination listing.
	Move(ctx context.Context, targetID, destinationID string) (*Children, error)
	Borrow(ctx context.Context, itemID, destinationID string) (*Item, error)
	UploadLocalAsset(ctx context.Context, assetID string) error
}
