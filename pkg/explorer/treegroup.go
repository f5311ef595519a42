package explorer

import (
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

// TrashNodeID is the tree id of a drive's trash folder. The backend calls
// every trash "trash"; the tree id includes the drive to stay unique.
func TrashNodeID(driveID string) string {
	return "trash-" + driveID
}

// TreeGroup is the tree of one group, with the ids of its well-known nodes.
type TreeGroup struct {
	*tree.Store

	GroupID          string
	Name             string
	HomeFolderID     string
	DownloadFolderID string
	SystemFolderID   string
	TrashFolderID    string
	DefaultDriveID   string
	DriveIDs         []string
}

func (g *TreeGroup) HomeNode() *tree.Node         { return g.Get(g.HomeFolderID) }
func (g *TreeGroup) DownloadNode() *tree.Node     { return g.Get(g.DownloadFolderID) }
func (g *TreeGroup) SystemNode() *tree.Node       { return g.Get(g.SystemFolderID) }
func (g *TreeGroup) TrashNode() *tree.Node        { return g.Get(g.TrashFolderID) }
func (g *TreeGroup) DefaultDriveNode() *tree.Node { return g.Get(g.DefaultDriveID) }

// TrashNodeOf returns the trash of the drive holding n, if present.
func (g *TreeGroup) TrashNodeOf(n *tree.Node) *tree.Node {
	if n.DriveID == "" {
		return g.TrashNode()
	}
	return g.Get(TrashNodeID(n.DriveID))
}

// newTreeGroup lays out the default drive with its well-known folders ahead of
// the group's other drives, whose content is loaded lazily.
func newTreeGroup(exec backend.Executor, name string, kind tree.GroupKind, drives *backend.Drives, dd *backend.DefaultDrive, logger *logrus.Entry) (*TreeGroup, error) {
	wellKnown := func(folderID, folderName string, kind tree.FolderKind) *tree.Node {
		return tree.NewFolderNode(tree.FolderParams{
			GroupID:        dd.GroupID,
			DriveID:        dd.DriveID,
			FolderID:       folderID,
			ParentFolderID: dd.DriveID,
			Name:           folderName,
			Kind:           kind,
		}, nil, folderChildren(exec, dd.GroupID, dd.DriveID, folderID))
	}
	home := wellKnown(dd.HomeFolderID, dd.HomeFolderName, tree.FolderHome)
	download := wellKnown(dd.DownloadFolderID, dd.DownloadFolderName, tree.FolderDownload)
	system := wellKnown(dd.SystemFolderID, dd.SystemFolderName, tree.FolderSystem)
	trash := tree.NewFolderNodeWithID(TrashNodeID(dd.DriveID), tree.FolderParams{
		GroupID:        dd.GroupID,
		DriveID:        dd.DriveID,
		FolderID:       "trash",
		ParentFolderID: dd.DriveID,
		Name:           "Trash",
		Kind:           tree.FolderTrash,
	}, nil, deletedChildren(exec, dd.DriveID))

	defaultDrive := tree.NewDriveNode(dd.GroupID, dd.DriveID, dd.DriveName, []*tree.Node{home, download, trash, system}, nil)
	nodes := []*tree.Node{defaultDrive}
	var driveIDs []string
	for _, d := range drives.Drives {
		if d.DriveID == dd.DriveID {
			continue
		}
		nodes = append(nodes, tree.NewDriveNode(d.GroupID, d.DriveID, d.Name, nil, folderChildren(exec, d.GroupID, d.DriveID, d.DriveID)))
		driveIDs = append(driveIDs, d.DriveID)
	}

	store, err := tree.NewStore(tree.NewGroupNode(dd.GroupID, name, kind, nodes), logger.WithField("group", dd.GroupID))
	if err != nil {
		return nil, err
	}
	return &TreeGroup{
		Store:            store,
		GroupID:          dd.GroupID,
		Name:             name,
		HomeFolderID:     home.ID,
		DownloadFolderID: download.ID,
		SystemFolderID:   system.ID,
		TrashFolderID:    trash.ID,
		DefaultDriveID:   defaultDrive.ID,
		DriveIDs:         driveIDs,
	}, nil
}
