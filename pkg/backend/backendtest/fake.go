// Package backendtest provides an in-memory explorer backend for tests.
package backendtest

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
)

// Call records one invocation of a Fake method.
type Call struct {
	Method string
	Args   []string
}

// Fake is a scriptable backend.Executor holding its data in memory.
// Individual methods can be held until released or made to fail.
type Fake struct {
	mu            sync.Mutex
	user          backend.UserInfo
	defaultDrives map[string]backend.DefaultDrive
	drives        map[string]backend.Drive
	folders       map[string]backend.Folder
	items         map[string]backend.Item
	deleted       map[string]*backend.Children
	permissions   map[string]backend.Permissions
	uploads       []string

	calls    []Call
	gates    map[string]chan struct{}
	failures map[string]error

	eventSubs map[int]chan backend.Event
	nextSub   int
}

var _ backend.Executor = (*Fake)(nil)

func NewFake(userName string) *Fake {
	return &Fake{
		user:          backend.UserInfo{Name: userName},
		defaultDrives: make(map[string]backend.DefaultDrive),
		drives:        make(map[string]backend.Drive),
		folders:       make(map[string]backend.Folder),
		items:         make(map[string]backend.Item),
		deleted:       make(map[string]*backend.Children),
		permissions:   make(map[string]backend.Permissions),
		gates:         make(map[string]chan struct{}),
		failures:      make(map[string]error),
		eventSubs:     make(map[int]chan backend.Event),
	}
}

// Well-known ids of the Standard fixture.
const (
	PrivateGroup    = "private-group"
	PrivateDrive    = "private-drive"
	PrivateHome     = "private-home"
	PrivateDownload = "private-download"
	PrivateSystem   = "private-system"
	TeamGroup       = "team-group"
	TeamDrive       = "team-drive"
	TeamHome        = "team-home"
	ExtraDrive      = "private-extra-drive"
)

// Standard returns a Fake with a private group and a team group. The private
// home holds folder F1 ("docs", containing item I2 "notes.txt") and item I1
// ("a.txt"). The private group has a second drive holding folder X1.
func Standard() *Fake {
	f := NewFake("jane")
	f.AddGroup(PrivateGroup, "private", "Default drive", PrivateDrive, PrivateHome, PrivateDownload, PrivateSystem)
	f.AddGroup(TeamGroup, "/youwol-users/team", "Team drive", TeamDrive, TeamHome, "team-download", "team-system")
	f.AddDrive(backend.Drive{GroupID: PrivateGroup, DriveID: ExtraDrive, Name: "Extra"})
	f.AddFolder(backend.Folder{FolderID: "F1", ParentFolderID: PrivateHome, Name: "docs"})
	f.AddFolder(backend.Folder{FolderID: "X1", ParentFolderID: ExtraDrive, Name: "archive"})
	f.AddItem(backend.Item{TreeID: "I1", AssetID: "A1", RawID: "R1", FolderID: PrivateHome, Name: "a.txt", Kind: "data"})
	f.AddItem(backend.Item{TreeID: "I2", AssetID: "A2", RawID: "R2", FolderID: "F1", Name: "notes.txt", Kind: "data"})
	return f
}

// AddGroup registers a group with its default drive and well-known folders.
func (f *Fake) AddGroup(groupID, path, driveName, driveID, homeID, downloadID, systemID string) {
	f.mu.Lock()
	f.user.Groups = append(f.user.Groups, backend.Group{ID: groupID, Path: path})
	f.defaultDrives[groupID] = backend.DefaultDrive{
		GroupID:            groupID,
		DriveID:            driveID,
		DriveName:          driveName,
		HomeFolderID:       homeID,
		HomeFolderName:     "Home",
		DownloadFolderID:   downloadID,
		DownloadFolderName: "Download",
		SystemFolderID:     systemID,
		SystemFolderName:   "System",
	}
	f.mu.Unlock()
	f.AddDrive(backend.Drive{GroupID: groupID, DriveID: driveID, Name: driveName})
	for id, name := range map[string]string{homeID: "Home", downloadID: "Download", systemID: "System"} {
		f.AddFolder(backend.Folder{FolderID: id, ParentFolderID: driveID, Name: name})
	}
}

func (f *Fake) AddDrive(d backend.Drive) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drives[d.DriveID] = d
}

// AddFolder registers a folder. Drive and group are derived from the parent
// when left empty.
func (f *Fake) AddFolder(folder backend.Folder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if folder.DriveID == "" || folder.GroupID == "" {
		folder.GroupID, folder.DriveID, _ = f.locateLocked(folder.ParentFolderID)
	}
	f.folders[folder.FolderID] = folder
}

// AddItem registers an item. Drive and group are derived from its folder when
// left empty.
func (f *Fake) AddItem(it backend.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it.DriveID == "" || it.GroupID == "" {
		it.GroupID, it.DriveID, _ = f.locateLocked(it.FolderID)
	}
	f.items[it.TreeID] = it
}

// AddDeleted puts entries in a drive's trash.
func (f *Fake) AddDeleted(driveID string, folders []backend.Folder, items []backend.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trash := f.trashLocked(driveID)
	trash.Folders = append(trash.Folders, folders...)
	trash.Items = append(trash.Items, items...)
}

func (f *Fake) SetPermissions(assetID string, perms backend.Permissions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permissions[assetID] = perms
}

// Hold blocks every later call of method until release is called.
func (f *Fake) Hold(method string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[method] = gate
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.gates[method] == gate {
				delete(f.gates, method)
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Fail makes every later call of method return err. A nil err clears it.
func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, method)
		return
	}
	f.failures[method] = err
}

// Calls returns the recorded calls of method, or all calls when empty.
func (f *Fake) Calls(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// CallCount returns the number of recorded calls of method.
func (f *Fake) CallCount(method string) int { return len(f.Calls(method)) }

// Uploads returns the asset ids passed to UploadLocalAsset.
func (f *Fake) Uploads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

// Item returns the current state of an item.
func (f *Fake) Item(id string) (backend.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	return it, ok
}

// Folder returns the current state of a folder.
func (f *Fake) Folder(id string) (backend.Folder, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	folder, ok := f.folders[id]
	return folder, ok
}

// Publish broadcasts an event to every event subscriber.
func (f *Fake) Publish(e backend.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.eventSubs {
		select {
		case ch <- e:
		default:
		}
	}
}

// SubscribeEvents returns a channel receiving published events.
func (f *Fake) SubscribeEvents() (<-chan backend.Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	ch := make(chan backend.Event, 16)
	f.eventSubs[id] = ch
	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.eventSubs, id)
	}
}

func (f *Fake) enter(ctx context.Context, method string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
	gate := f.gates[method]
	err := f.failures[method]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func notFound(method, id string) error {
	return &backend.HTTPError{StatusCode: http.StatusNotFound, Method: method, URL: id, Message: "not found"}
}

// locateLocked returns the group and drive of a folder or drive id.
func (f *Fake) locateLocked(id string) (groupID, driveID string, ok bool) {
	if d, found := f.drives[id]; found {
		return d.GroupID, d.DriveID, true
	}
	if folder, found := f.folders[id]; found {
		return folder.GroupID, folder.DriveID, true
	}
	return "", "", false
}

func (f *Fake) trashLocked(driveID string) *backend.Children {
	trash, ok := f.deleted[driveID]
	if !ok {
		trash = &backend.Children{Folders: []backend.Folder{}, Items: []backend.Item{}}
		f.deleted[driveID] = trash
	}
	return trash
}

func (f *Fake) childrenLocked(parentID string) *backend.Children {
	out := &backend.Children{Folders: []backend.Folder{}, Items: []backend.Item{}}
	for _, folder := range f.folders {
		if folder.ParentFolderID == parentID {
			out.Folders = append(out.Folders, folder)
		}
	}
	for _, it := range f.items {
		if it.FolderID == parentID {
			out.Items = append(out.Items, it)
		}
	}
	sort.Slice(out.Folders, func(i, j int) bool { return out.Folders[i].FolderID < out.Folders[j].FolderID })
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].TreeID < out.Items[j].TreeID })
	return out
}

func (f *Fake) GetUserInfo(ctx context.Context) (*backend.UserInfo, error) {
	if err := f.enter(ctx, "GetUserInfo"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	info := f.user
	info.Groups = append([]backend.Group(nil), f.user.Groups...)
	return &info, nil
}

func (f *Fake) GetDefaultDrive(ctx context.Context, groupID string) (*backend.DefaultDrive, error) {
	if err := f.enter(ctx, "GetDefaultDrive", groupID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.defaultDrives[groupID]
	if !ok {
		return nil, notFound("GetDefaultDrive", groupID)
	}
	return &d, nil
}

func (f *Fake) GetDrivesChildren(ctx context.Context, groupID string) (*backend.Drives, error) {
	if err := f.enter(ctx, "GetDrivesChildren", groupID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &backend.Drives{Drives: []backend.Drive{}}
	for _, d := range f.drives {
		if d.GroupID == groupID {
			out.Drives = append(out.Drives, d)
		}
	}
	sort.Slice(out.Drives, func(i, j int) bool { return out.Drives[i].DriveID < out.Drives[j].DriveID })
	return out, nil
}

func (f *Fake) GetFolderChildren(ctx context.Context, groupID, driveID, folderID string) (*backend.Children, error) {
	if err := f.enter(ctx, "GetFolderChildren", groupID, driveID, folderID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.childrenLocked(folderID), nil
}

func (f *Fake) GetDeletedItems(ctx context.Context, driveID string) (*backend.Children, error) {
	if err := f.enter(ctx, "GetDeletedItems", driveID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	trash := f.trashLocked(driveID)
	return &backend.Children{
		Folders: append([]backend.Folder{}, trash.Folders...),
		Items:   append([]backend.Item{}, trash.Items...),
	}, nil
}

func (f *Fake) GetFolder(ctx context.Context, folderID string) (*backend.Folder, error) {
	if err := f.enter(ctx, "GetFolder", folderID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	folder, ok := f.folders[folderID]
	if !ok {
		return nil, notFound("GetFolder", folderID)
	}
	return &folder, nil
}

func (f *Fake) GetItem(ctx context.Context, itemID string) (*backend.Item, error) {
	if err := f.enter(ctx, "GetItem", itemID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemID]
	if !ok {
		return nil, notFound("GetItem", itemID)
	}
	return &it, nil
}

func (f *Fake) GetPath(ctx context.Context, folderID string) (*backend.Path, error) {
	if err := f.enter(ctx, "GetPath", folderID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	folder, ok := f.folders[folderID]
	if !ok {
		return nil, notFound("GetPath", folderID)
	}
	var chain []backend.Folder
	for ok {
		chain = append([]backend.Folder{folder}, chain...)
		folder, ok = f.folders[folder.ParentFolderID]
	}
	return &backend.Path{Drive: f.drives[chain[0].DriveID], Folders: chain}, nil
}

func (f *Fake) GetPermissions(ctx context.Context, assetID string) (*backend.Permissions, error) {
	if err := f.enter(ctx, "GetPermissions", assetID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	perms, ok := f.permissions[assetID]
	if !ok {
		perms = backend.Permissions{Read: true, Write: true, Share: true}
	}
	return &perms, nil
}

func (f *Fake) CreateFolder(ctx context.Context, parentID string, req backend.CreateFolderRequest) (*backend.Folder, error) {
	if err := f.enter(ctx, "CreateFolder", parentID, req.Name, req.FolderID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	groupID, driveID, ok := f.locateLocked(parentID)
	if !ok {
		return nil, notFound("CreateFolder", parentID)
	}
	folder := backend.Folder{
		FolderID:       req.FolderID,
		ParentFolderID: parentID,
		DriveID:        driveID,
		GroupID:        groupID,
		Name:           req.Name,
		Metadata:       "{}",
	}
	f.folders[folder.FolderID] = folder
	return &folder, nil
}

func (f *Fake) RenameFolder(ctx context.Context, folderID, name string) error {
	if err := f.enter(ctx, "RenameFolder", folderID, name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	folder, ok := f.folders[folderID]
	if !ok {
		return notFound("RenameFolder", folderID)
	}
	folder.Name = name
	f.folders[folderID] = folder
	return nil
}

func (f *Fake) RenameItem(ctx context.Context, itemID, name string) error {
	if err := f.enter(ctx, "RenameItem", itemID, name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemID]
	if !ok {
		return notFound("RenameItem", itemID)
	}
	it.Name = name
	f.items[itemID] = it
	return nil
}

func (f *Fake) TrashFolder(ctx context.Context, folderID string) error {
	if err := f.enter(ctx, "TrashFolder", folderID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	folder, ok := f.folders[folderID]
	if !ok {
		return notFound("TrashFolder", folderID)
	}
	delete(f.folders, folderID)
	trash := f.trashLocked(folder.DriveID)
	trash.Folders = append(trash.Folders, folder)
	return nil
}

func (f *Fake) TrashItem(ctx context.Context, itemID string) error {
	if err := f.enter(ctx, "TrashItem", itemID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemID]
	if !ok {
		return notFound("TrashItem", itemID)
	}
	delete(f.items, itemID)
	trash := f.trashLocked(it.DriveID)
	trash.Items = append(trash.Items, it)
	return nil
}

func (f *Fake) DeleteDrive(ctx context.Context, driveID string) error {
	if err := f.enter(ctx, "DeleteDrive", driveID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.drives[driveID]; !ok {
		return notFound("DeleteDrive", driveID)
	}
	delete(f.drives, driveID)
	return nil
}

func (f *Fake) PurgeDrive(ctx context.Context, driveID string) error {
	if err := f.enter(ctx, "PurgeDrive", driveID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.deleted, driveID)
	return nil
}

func (f *Fake) Move(ctx context.Context, targetID, destinationID string) (*backend.Children, error) {
	if err := f.enter(ctx, "Move", targetID, destinationID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	groupID, driveID, ok := f.locateLocked(destinationID)
	if !ok {
		return nil, notFound("Move", destinationID)
	}
	switch {
	case hasKey(f.items, targetID):
		it := f.items[targetID]
		it.FolderID, it.DriveID, it.GroupID = destinationID, driveID, groupID
		f.items[targetID] = it
	case hasKey(f.folders, targetID):
		if destinationID == targetID {
			return nil, fmt.Errorf("cannot move %s into itself", targetID)
		}
		folder := f.folders[targetID]
		folder.ParentFolderID, folder.DriveID, folder.GroupID = destinationID, driveID, groupID
		f.folders[targetID] = folder
	default:
		return nil, notFound("Move", targetID)
	}
	return f.childrenLocked(destinationID), nil
}

func (f *Fake) Borrow(ctx context.Context, itemID, destinationID string) (*backend.Item, error) {
	if err := f.enter(ctx, "Borrow", itemID, destinationID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	original, ok := f.items[itemID]
	if !ok {
		return nil, notFound("Borrow", itemID)
	}
	groupID, driveID, ok := f.locateLocked(destinationID)
	if !ok {
		return nil, notFound("Borrow", destinationID)
	}
	borrowed := original
	borrowed.TreeID = uuid.NewString()
	borrowed.FolderID, borrowed.DriveID, borrowed.GroupID = destinationID, driveID, groupID
	borrowed.Borrowed = true
	f.items[borrowed.TreeID] = borrowed
	return &borrowed, nil
}

func (f *Fake) UploadLocalAsset(ctx context.Context, assetID string) error {
	if err := f.enter(ctx, "UploadLocalAsset", assetID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, assetID)
	return nil
}

func hasKey[V any](m map[string]V, k string) bool {
	_, ok := m[k]
	return ok
}
