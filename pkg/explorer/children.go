package explorer

import (
	"context"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

func origin(o *backend.Origin) *tree.Origin {
	if o == nil {
		return nil
	}
	return &tree.Origin{Local: o.Local, Remote: o.Remote}
}

func folderNode(exec backend.Executor, f backend.Folder) *tree.Node {
	return tree.NewFolderNode(tree.FolderParams{
		GroupID:        f.GroupID,
		DriveID:        f.DriveID,
		FolderID:       f.FolderID,
		ParentFolderID: f.ParentFolderID,
		Name:           f.Name,
		Kind:           tree.FolderRegular,
		Metadata:       f.Metadata,
		Origin:         origin(f.Origin),
	}, nil, folderChildren(exec, f.GroupID, f.DriveID, f.FolderID))
}

func itemNode(it backend.Item) *tree.Node {
	return tree.NewItemNode(tree.ItemParams{
		GroupID:  it.GroupID,
		DriveID:  it.DriveID,
		ItemID:   it.TreeID,
		AssetID:  it.AssetID,
		RawID:    it.RawID,
		FolderID: it.FolderID,
		Name:     it.Name,
		Kind:     it.Kind,
		Borrowed: it.Borrowed,
		Metadata: it.Metadata,
		Origin:   origin(it.Origin),
	})
}

// folderChildren loads the folders then the items of a folder. Drives use
// their drive id as folder id.
func folderChildren(exec backend.Executor, groupID, driveID, folderID string) tree.Loader {
	return func(ctx context.Context) ([]*tree.Node, error) {
		resp, err := exec.GetFolderChildren(ctx, groupID, driveID, folderID)
		if err != nil {
			return nil, err
		}
		nodes := make([]*tree.Node, 0, len(resp.Folders)+len(resp.Items))
		for _, f := range resp.Folders {
			if f.GroupID == "" {
				f.GroupID = groupID
			}
			if f.DriveID == "" {
				f.DriveID = driveID
			}
			nodes = append(nodes, folderNode(exec, f))
		}
		for _, it := range resp.Items {
			if it.GroupID == "" {
				it.GroupID = groupID
			}
			if it.DriveID == "" {
				it.DriveID = driveID
			}
			nodes = append(nodes, itemNode(it))
		}
		return nodes, nil
	}
}

// deletedChildren loads the content of a drive's trash as read-only nodes.
func deletedChildren(exec backend.Executor, driveID string) tree.Loader {
	return func(ctx context.Context) ([]*tree.Node, error) {
		resp, err := exec.GetDeletedItems(ctx, driveID)
		if err != nil {
			return nil, err
		}
		nodes := make([]*tree.Node, 0, len(resp.Folders)+len(resp.Items))
		for _, f := range resp.Folders {
			nodes = append(nodes, tree.NewDeletedFolderNode(f.FolderID, driveID, f.Name))
		}
		for _, it := range resp.Items {
			nodes = append(nodes, tree.NewDeletedItemNode(it.TreeID, driveID, it.Name, it.Kind))
		}
		return nodes, nil
	}
}

// loaderFor rebuilds the children producer of a drive or folder.
func loaderFor(exec backend.Executor, n *tree.Node) tree.Loader {
	switch {
	case n.IsTrash():
		return deletedChildren(exec, n.DriveID)
	case n.Folder != nil:
		return folderChildren(exec, n.GroupID, n.DriveID, n.Folder.FolderID)
	default:
		return folderChildren(exec, n.GroupID, n.DriveID, n.DriveID)
	}
}

// containerID is the backend id of a drive or folder used as a destination.
func containerID(n *tree.Node) string {
	if n.Folder != nil {
		return n.Folder.FolderID
	}
	return n.DriveID
}
