package actions

import (
	"context"
	"errors"

	"github.com/mattsolo1/grove-explorer/pkg/favorites"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

// ErrNoHost is returned by actions needing a Host when none is configured.
var ErrNoHost = errors.New("no host configured")

type constructor func(c *Catalog, n *tree.Node, p Permissions) Action

func always() bool { return true }

// generic is the static catalog, in menu order.
var generic = []constructor{
	renameItem,
	renameFolder,
	newFolder,
	download,
	upload,
	deleteFolder,
	deleteDrive,
	clearTrash,
	paste,
	cut,
	borrowItem,
	deleteItem,
	refresh,
	copyFileID,
	copyExplorerID,
	copyAssetID,
	copyFileURL,
	favoriteFolder,
	unFavoriteFolder,
	favoriteDesktopItem,
	unFavoriteDesktopItem,
}

func isDataItem(n *tree.Node) bool {
	return n.Kind == tree.KindItem && n.Item.Kind == "data"
}

func renameItem(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:       n,
		Icon:       "fas fa-pen",
		Name:       "rename",
		Section:    SectionModify,
		Enabled:    func() bool { return hasItemModifyPermission(n, p) },
		Applicable: func() bool { return n.Kind == tree.KindItem },
		Exe: func(context.Context) error {
			n.AddStatus(tree.StatusRenaming, "")
			return nil
		},
	}
}

func renameFolder(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:       n,
		Icon:       "fas fa-pen",
		Name:       "rename",
		Section:    SectionModify,
		Enabled:    func() bool { return hasGroupModifyPermission(p) },
		Applicable: func() bool { return n.IsFolder(tree.FolderRegular) },
		Exe: func(context.Context) error {
			n.AddStatus(tree.StatusRenaming, "")
			return nil
		},
	}
}

func newFolder(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:       n,
		Icon:       "fas fa-folder",
		Name:       "new folder",
		Section:    SectionNew,
		Enabled:    func() bool { return hasGroupModifyPermission(p) },
		Applicable: func() bool { return n.IsStandardFolder() || n.Kind == tree.KindDrive },
		Exe: func(ctx context.Context) error {
			_, err := c.state.NewFolder(ctx, n)
			return err
		},
	}
}

func download(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:       n,
		Icon:       "fas fa-download",
		Name:       "download file",
		Section:    SectionIO,
		Enabled:    always,
		Applicable: func() bool { return isDataItem(n) },
		Exe: func(ctx context.Context) error {
			if c.host == nil {
				return ErrNoHost
			}
			return c.host.Download(ctx, c.baseURL+"/api/assets-gateway/raw/data/"+n.Item.RawID, n.Name)
		},
	}
}

func upload(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:    n,
		Icon:    "fas fa-upload",
		Name:    "upload asset",
		Section: SectionIO,
		Enabled: always,
		Applicable: func() bool {
			return c.state.Config().Local && n.Kind == tree.KindItem && n.Origin != nil && n.Origin.Local
		},
		Exe: func(ctx context.Context) error {
			return c.state.UploadAsset(ctx, n)
		},
	}
}

func deleteFolder(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:       n,
		Icon:       "fas fa-trash",
		Name:       "delete",
		Section:    SectionModify,
		Enabled:    func() bool { return hasGroupModifyPermission(p) },
		Applicable: func() bool { return n.IsFolder(tree.FolderRegular) },
		Exe: func(context.Context) error {
			return c.state.DeleteItemOrFolder(n)
		},
	}
}

func deleteDrive(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:       n,
		Icon:       "fas fa-trash",
		Name:       "delete drive",
		Section:    SectionModify,
		Enabled:    func() bool { return hasGroupModifyPermission(p) },
		Applicable: func() bool { return n.Kind == tree.KindDrive },
		Exe: func(context.Context) error {
			return c.state.DeleteDrive(n)
		},
	}
}

func clearTrash(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:       n,
		Icon:       "fas fa-times",
		Name:       "clear trash",
		Section:    SectionModify,
		Enabled:    func() bool { return hasGroupModifyPermission(p) },
		Applicable: func() bool { return n.IsTrash() },
		Exe: func(ctx context.Context) error {
			return c.state.PurgeDrive(ctx, n)
		},
	}
}

func paste(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:       n,
		Icon:       "fas fa-paste",
		Name:       "paste",
		Section:    SectionMove,
		Enabled:    func() bool { return hasGroupModifyPermission(p) },
		Applicable: func() bool { return n.IsStandardFolder() && c.state.ItemCut() != nil },
		Exe: func(ctx context.Context) error {
			_, err := c.state.PasteItem(ctx, n)
			return err
		},
	}
}

func cut(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:    n,
		Icon:    "fas fa-cut",
		Name:    "cut",
		Section: SectionMove,
		Enabled: func() bool { return hasItemModifyPermission(n, p) },
		Applicable: func() bool {
			if n.Kind == tree.KindItem {
				return !n.Item.Borrowed
			}
			return n.IsStandardFolder()
		},
		Exe: func(context.Context) error {
			c.state.CutItem(n)
			return nil
		},
	}
}

func borrowItem(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:       n,
		Icon:       "fas fa-link",
		Name:       "borrow item",
		Section:    SectionMove,
		Enabled:    func() bool { return hasItemSharePermission(p) },
		Applicable: func() bool { return n.Kind == tree.KindItem },
		Exe: func(context.Context) error {
			c.state.BorrowItem(n)
			return nil
		},
	}
}

func deleteItem(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:       n,
		Icon:       "fas fa-trash",
		Name:       "delete",
		Section:    SectionModify,
		Enabled:    func() bool { return hasItemModifyPermission(n, p) },
		Applicable: func() bool { return n.Kind == tree.KindItem },
		Exe: func(context.Context) error {
			return c.state.DeleteItemOrFolder(n)
		},
	}
}

func refresh(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:       n,
		Icon:       "fas fa-sync-alt",
		Name:       "refresh",
		Section:    SectionDisposition,
		Enabled:    always,
		Applicable: func() bool { return n.Kind == tree.KindFolder },
		Exe: func(context.Context) error {
			return c.state.Refresh(n, true)
		},
	}
}

func (c *Catalog) copy(text string) func(context.Context) error {
	return func(context.Context) error {
		if c.host == nil {
			return ErrNoHost
		}
		return c.host.CopyToClipboard(text)
	}
}

func copyFileID(c *Catalog, n *tree.Node, p Permissions) Action {
	a := Action{
		Node:       n,
		Icon:       "fas fa-clipboard",
		Name:       "copy file's id",
		Section:    SectionInfo,
		Enabled:    always,
		Applicable: func() bool { return isDataItem(n) },
	}
	if n.Item != nil {
		a.Exe = c.copy(n.Item.RawID)
	}
	return a
}

func copyExplorerID(c *Catalog, n *tree.Node, p Permissions) Action {
	a := Action{
		Node:       n,
		Icon:       "fas fa-clipboard",
		Name:       "copy explorer's id",
		Section:    SectionInfo,
		Enabled:    always,
		Applicable: func() bool { return isDataItem(n) },
	}
	if n.Item != nil {
		a.Exe = c.copy(n.Item.ItemID)
	}
	return a
}

func copyAssetID(c *Catalog, n *tree.Node, p Permissions) Action {
	a := Action{
		Node:       n,
		Icon:       "fas fa-clipboard",
		Name:       "copy asset's id",
		Section:    SectionInfo,
		Enabled:    always,
		Applicable: func() bool { return n.Kind == tree.KindItem },
	}
	if n.Item != nil {
		a.Exe = c.copy(n.Item.AssetID)
	}
	return a
}

func copyFileURL(c *Catalog, n *tree.Node, p Permissions) Action {
	a := Action{
		Node:       n,
		Icon:       "fas fa-clipboard",
		Name:       "copy file's url",
		Section:    SectionInfo,
		Enabled:    always,
		Applicable: func() bool { return isDataItem(n) },
	}
	if n.Item != nil {
		a.Exe = c.copy(c.baseURL + "/api/assets-gateway/files-backend/files/" + n.Item.RawID)
	}
	return a
}

func (c *Catalog) isFavorite(kind favorites.Kind, n *tree.Node) bool {
	return c.favorites.IsFavorite(kind, n.ID)
}

func favoriteFolder(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:    n,
		Icon:    "fas fa-map-pin",
		Name:    "add to favorites",
		Section: SectionDisposition,
		Enabled: always,
		Applicable: func() bool {
			return c.favorites != nil && n.Kind == tree.KindFolder && !c.isFavorite(favorites.KindFolder, n)
		},
		Exe: c.toggleFolder(n),
	}
}

func unFavoriteFolder(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:    n,
		Icon:    "fas fa-unlink",
		Name:    "un-favorite",
		Section: SectionDisposition,
		Enabled: always,
		Applicable: func() bool {
			return c.favorites != nil && n.Kind == tree.KindFolder && c.isFavorite(favorites.KindFolder, n)
		},
		Exe: c.toggleFolder(n),
	}
}

func favoriteDesktopItem(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:    n,
		Icon:    "fas fa-map-pin",
		Name:    "add to desktop",
		Section: SectionDisposition,
		Enabled: always,
		Applicable: func() bool {
			return c.favorites != nil && n.Kind == tree.KindItem && !c.isFavorite(favorites.KindItem, n)
		},
		Exe: c.toggleItem(n),
	}
}

func unFavoriteDesktopItem(c *Catalog, n *tree.Node, p Permissions) Action {
	return Action{
		Node:    n,
		Icon:    "fas fa-unlink",
		Name:    "remove from desktop",
		Section: SectionDisposition,
		Enabled: always,
		Applicable: func() bool {
			return c.favorites != nil && n.Kind == tree.KindItem && c.isFavorite(favorites.KindItem, n)
		},
		Exe: c.toggleItem(n),
	}
}

func (c *Catalog) toggleFolder(n *tree.Node) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := c.favorites.ToggleFolder(ctx, n.ID)
		return err
	}
}

func (c *Catalog) toggleItem(n *tree.Node) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := c.favorites.ToggleItem(ctx, n.ID)
		return err
	}
}
