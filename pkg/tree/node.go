package tree

import (
	"context"
	"encoding/json"
)

// Kind discriminates the closed set of node variants an explorer tree can hold.
type Kind int

const (
	KindGroup Kind = iota
	KindDrive
	KindFolder
	KindItem
	KindFutureFolder
	KindFutureItem
	KindProgress
	KindDeletedFolder
	KindDeletedItem
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindDrive:
		return "drive"
	case KindFolder:
		return "folder"
	case KindItem:
		return "item"
	case KindFutureFolder:
		return "future-folder"
	case KindFutureItem:
		return "future-item"
	case KindProgress:
		return "progress"
	case KindDeletedFolder:
		return "deleted-folder"
	case KindDeletedItem:
		return "deleted-item"
	}
	return "unknown"
}

// FolderKind categorizes folders. Only regular folders are user editable.
type FolderKind string

const (
	FolderRegular  FolderKind = "regular"
	FolderHome     FolderKind = "home"
	FolderDownload FolderKind = "download"
	FolderTrash    FolderKind = "trash"
	FolderSystem   FolderKind = "system"
)

// GroupKind distinguishes a user's private group from shared ones.
type GroupKind string

const (
	GroupUser  GroupKind = "user"
	GroupUsers GroupKind = "users"
)

var groupIcons = map[GroupKind]string{
	GroupUser:  "fas fa-user",
	GroupUsers: "fas fa-users",
}

var folderIcons = map[FolderKind]string{
	FolderRegular:  "fas fa-folder",
	FolderHome:     "fas fa-home",
	FolderDownload: "fas fa-shopping-cart",
	FolderTrash:    "fas fa-trash",
	FolderSystem:   "fas fa-cogs",
}

var itemIcons = map[string]string{
	"data":    "fas fa-database",
	"package": "fas fa-box",
}

const (
	driveIcon   = "fas fa-hdd"
	spinnerIcon = "fas fa-spinner fa-spin"
)

// FolderIcon returns the presentation hint for a folder kind.
func FolderIcon(kind FolderKind) string { return folderIcons[kind] }

// ItemIcon returns the presentation hint for an item kind.
func ItemIcon(kind string) string { return itemIcons[kind] }

// Origin records where an asset lives.
type Origin struct {
	Local  bool `json:"local"`
	Remote bool `json:"remote"`
}

// Loader produces the children of a node on demand.
type Loader func(ctx context.Context) ([]*Node, error)

// GroupInfo is the payload of KindGroup nodes.
type GroupInfo struct {
	Kind GroupKind
}

// FolderInfo is the payload of KindFolder nodes.
type FolderInfo struct {
	FolderID       string
	ParentFolderID string
	Kind           FolderKind
	Metadata       string
}

// ItemInfo is the payload of KindItem nodes.
type ItemInfo struct {
	AssetID  string
	ItemID   string
	RawID    string
	FolderID string
	Kind     string
	Borrowed bool
	Metadata string
}

// ResponseFunc runs the backend call a placeholder stands for.
type ResponseFunc func(ctx context.Context) (any, error)

// ResponseHandler replaces a placeholder once its response is known.
type ResponseHandler func(resp any, placeholder *Node)

// FutureInfo is the payload of KindFutureFolder, KindFutureItem and KindProgress nodes.
type FutureInfo struct {
	Response   ResponseFunc
	OnResponse ResponseHandler

	progress *Progress
}

// DeletedInfo is the payload of KindDeletedFolder and KindDeletedItem nodes.
type DeletedInfo struct {
	Kind string
}

// Node is one entry of an explorer tree. Nodes are shared between snapshots
// and must be treated as read-only; edits go through a Store. The status set
// is the only mutable part and survives attribute replacement.
type Node struct {
	ID      string
	Name    string
	Icon    string
	Kind    Kind
	Origin  *Origin
	GroupID string
	DriveID string

	Group   *GroupInfo
	Folder  *FolderInfo
	Item    *ItemInfo
	Future  *FutureInfo
	Deleted *DeletedInfo

	children []*Node
	loader   Loader
	status   *Status
}

func newNode(id, name, icon string, kind Kind) *Node {
	return &Node{ID: id, Name: name, Icon: icon, Kind: kind, status: newStatus(id)}
}

// Status returns the node's mutable status set.
func (n *Node) Status() *Status { return n.status }

// AddStatus tags the node; an empty id defaults to the node id.
func (n *Node) AddStatus(typ StatusType, id string) StatusTag {
	return n.status.Add(typ, id)
}

// RemoveStatus drops the (typ, id) tag; an empty id defaults to the node id.
func (n *Node) RemoveStatus(typ StatusType, id string) {
	n.status.Remove(typ, id)
}

// IsLeaf reports whether the node can never have children.
func (n *Node) IsLeaf() bool {
	return n.children == nil && n.loader == nil
}

// Resolved reports whether the children are known without calling the loader.
func (n *Node) Resolved() bool {
	return n.loader == nil
}

// Children returns the resolved children, or nil when they are still lazy.
func (n *Node) Children() []*Node {
	if n.loader != nil {
		return nil
	}
	return n.children
}

// IsFolder reports a folder of one of the given kinds (any kind if none given).
func (n *Node) IsFolder(kinds ...FolderKind) bool {
	if n.Kind != KindFolder || n.Folder == nil {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if n.Folder.Kind == k {
			return true
		}
	}
	return false
}

// IsStandardFolder reports regular, home and download folders.
func (n *Node) IsStandardFolder() bool {
	return n.IsFolder(FolderRegular, FolderHome, FolderDownload)
}

// IsTrash reports a trash folder.
func (n *Node) IsTrash() bool { return n.IsFolder(FolderTrash) }

// IsFuture reports optimistic placeholders, including progress nodes.
func (n *Node) IsFuture() bool {
	switch n.Kind {
	case KindFutureFolder, KindFutureItem, KindProgress:
		return true
	}
	return false
}

// IsDeleted reports trashed entities.
func (n *Node) IsDeleted() bool {
	return n.Kind == KindDeletedFolder || n.Kind == KindDeletedItem
}

// Progress returns the transfer stream of a progress node.
func (n *Node) Progress() *Progress {
	if n.Future == nil {
		return nil
	}
	return n.Future.progress
}

// shallow returns a copy sharing status and payloads.
func (n *Node) shallow() *Node {
	c := *n
	return &c
}

func (n *Node) withChildren(children []*Node) *Node {
	c := n.shallow()
	c.children = children
	c.loader = nil
	return c
}

// WithChildren returns a copy of n holding the given resolved children.
func (n *Node) WithChildren(children []*Node) *Node {
	if children == nil {
		children = []*Node{}
	}
	return n.withChildren(children)
}

// WithLoader returns a copy of n whose children will be loaded lazily.
func (n *Node) WithLoader(loader Loader) *Node {
	c := n.shallow()
	c.children = nil
	c.loader = loader
	return c
}

// Attributes are the fields ReplaceAttributes may change.
type Attributes struct {
	Name *string
	Icon *string
}

func (n *Node) withAttributes(attrs Attributes) *Node {
	c := n.shallow()
	if attrs.Name != nil {
		c.Name = *attrs.Name
	}
	if attrs.Icon != nil {
		c.Icon = *attrs.Icon
	}
	return c
}

// NewGroupNode builds the root of a permission namespace.
func NewGroupNode(groupID, name string, kind GroupKind, drives []*Node) *Node {
	n := newNode(groupID, name, groupIcons[kind], KindGroup)
	n.GroupID = groupID
	n.Group = &GroupInfo{Kind: kind}
	n.children = nonNil(drives)
	return n
}

// NewDriveNode builds a storage root. Pass either children or a loader.
func NewDriveNode(groupID, driveID, name string, children []*Node, loader Loader) *Node {
	n := newNode(driveID, name, driveIcon, KindDrive)
	n.GroupID = groupID
	n.DriveID = driveID
	n.setChildren(children, loader)
	return n
}

// FolderParams describes a folder as returned by the backend.
type FolderParams struct {
	GroupID        string
	DriveID        string
	FolderID       string
	ParentFolderID string
	Name           string
	Kind           FolderKind
	Metadata       string
	Origin         *Origin
}

// NewFolderNode builds a folder whose id is its folder id.
func NewFolderNode(p FolderParams, children []*Node, loader Loader) *Node {
	return NewFolderNodeWithID(p.FolderID, p, children, loader)
}

// NewFolderNodeWithID builds a folder whose tree id differs from its folder id.
// Per-drive trash folders use this to stay unique within a tree.
func NewFolderNodeWithID(id string, p FolderParams, children []*Node, loader Loader) *Node {
	if p.Kind == "" {
		p.Kind = FolderRegular
	}
	n := newNode(id, p.Name, folderIcons[p.Kind], KindFolder)
	n.GroupID = p.GroupID
	n.DriveID = p.DriveID
	n.Origin = p.Origin
	n.Folder = &FolderInfo{
		FolderID:       p.FolderID,
		ParentFolderID: p.ParentFolderID,
		Kind:           p.Kind,
		Metadata:       p.Metadata,
	}
	n.setChildren(children, loader)
	return n
}

// ItemParams describes an item as returned by the backend.
type ItemParams struct {
	GroupID  string
	DriveID  string
	ItemID   string
	AssetID  string
	RawID    string
	FolderID string
	Name     string
	Kind     string
	Borrowed bool
	Metadata string
	Origin   *Origin
}

// NewItemNode builds a leaf asset reference.
func NewItemNode(p ItemParams) *Node {
	n := newNode(p.ItemID, p.Name, itemIcons[p.Kind], KindItem)
	n.GroupID = p.GroupID
	n.DriveID = p.DriveID
	n.Origin = p.Origin
	n.Item = &ItemInfo{
		AssetID:  p.AssetID,
		ItemID:   p.ItemID,
		RawID:    p.RawID,
		FolderID: p.FolderID,
		Kind:     p.Kind,
		Borrowed: p.Borrowed,
		Metadata: p.Metadata,
	}
	return n
}

// FutureParams describes an optimistic placeholder.
type FutureParams struct {
	ID         string
	Name       string
	Icon       string
	Response   ResponseFunc
	OnResponse ResponseHandler
}

// NewFutureFolderNode builds a placeholder for a folder being created or moved.
func NewFutureFolderNode(p FutureParams) *Node {
	return newFuture(p, KindFutureFolder)
}

// NewFutureItemNode builds a placeholder for an item being created, moved or borrowed.
func NewFutureItemNode(p FutureParams) *Node {
	return newFuture(p, KindFutureItem)
}

func newFuture(p FutureParams, kind Kind) *Node {
	if p.ID == "" {
		p.ID = NewNodeID()
	}
	if p.Icon == "" {
		p.Icon = spinnerIcon
	}
	n := newNode(p.ID, p.Name, p.Icon, kind)
	n.Future = &FutureInfo{Response: p.Response, OnResponse: p.OnResponse}
	return n
}

// NewDeletedFolderNode builds the read-only view of a trashed folder.
func NewDeletedFolderNode(id, driveID, name string) *Node {
	n := newNode(id, name, folderIcons[FolderRegular], KindDeletedFolder)
	n.DriveID = driveID
	n.Deleted = &DeletedInfo{}
	return n
}

// NewDeletedItemNode builds the read-only view of a trashed item.
func NewDeletedItemNode(id, driveID, name, kind string) *Node {
	n := newNode(id, name, itemIcons[kind], KindDeletedItem)
	n.DriveID = driveID
	n.Deleted = &DeletedInfo{Kind: kind}
	return n
}

func (n *Node) setChildren(children []*Node, loader Loader) {
	if loader != nil {
		n.loader = loader
		return
	}
	n.children = nonNil(children)
}

func nonNil(nodes []*Node) []*Node {
	if nodes == nil {
		return []*Node{}
	}
	return nodes
}

type serialized struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Kind     string        `json:"kind"`
	Origin   *Origin       `json:"origin,omitempty"`
	Icon     string        `json:"icon"`
	Children []*serialized `json:"children"`
}

func toSerialized(n *Node) *serialized {
	s := &serialized{
		ID:       n.ID,
		Name:     n.Name,
		Kind:     n.Kind.String(),
		Origin:   n.Origin,
		Icon:     n.Icon,
		Children: []*serialized{},
	}
	for _, c := range n.Children() {
		s.Children = append(s.Children, toSerialized(c))
	}
	return s
}

// Serialize renders the resolved part of a subtree as JSON.
func Serialize(n *Node) (string, error) {
	b, err := json.Marshal(toSerialized(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
