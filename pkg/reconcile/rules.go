package reconcile

import (
	"context"

	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

// Rule turns one kind of local edit into a backend call.
type Rule struct {
	Name string
	When func(u tree.Update) bool
	Then func(r *Reconciler, u tree.Update)
}

// Rules returns the rule table in evaluation order. The first matching rule
// is the only one applied.
func Rules() []Rule {
	return []Rule{
		{Name: "renameFolder", When: renameFolderWhen, Then: renameFolderThen},
		{Name: "renameItem", When: renameItemWhen, Then: renameItemThen},
		{Name: "deleteFolder", When: deleteFolderWhen, Then: deleteFolderThen},
		{Name: "deleteDrive", When: deleteDriveWhen, Then: deleteDriveThen},
		{Name: "deleteItem", When: deleteItemWhen, Then: deleteItemThen},
		{Name: "newAsset", When: newAssetWhen, Then: newAssetThen},
	}
}

var rules = Rules()

// Match returns the first rule matching u.
func Match(u tree.Update) (Rule, bool) {
	for _, rule := range rules {
		if rule.When(u) {
			return rule, true
		}
	}
	return Rule{}, false
}

// toProcess checks the command kind and that the edit still has to be saved.
func toProcess(u tree.Update, kind tree.CommandKind) bool {
	return u.Command.Kind == kind && u.Command.Metadata.ToBeSaved
}

func single(nodes []*tree.Node) *tree.Node {
	if len(nodes) != 1 {
		return nil
	}
	return nodes[0]
}

func renameFolderWhen(u tree.Update) bool {
	if !toProcess(u, tree.CmdReplaceAttributes) {
		return false
	}
	n := single(u.AddedNodes)
	return n != nil && n.IsFolder(tree.FolderRegular)
}

func renameFolderThen(r *Reconciler, u tree.Update) {
	node := u.AddedNodes[0]
	r.dispatch("renameFolder", u, []*tree.Node{node},
		func(ctx context.Context) (any, error) {
			return nil, r.exec.RenameFolder(ctx, node.Folder.FolderID, node.Name)
		},
		func(any) { r.favorites.Refresh(r.ctx, node.ID) },
	)
}

func renameItemWhen(u tree.Update) bool {
	if !toProcess(u, tree.CmdReplaceAttributes) {
		return false
	}
	n := single(u.AddedNodes)
	return n != nil && n.Kind == tree.KindItem
}

func renameItemThen(r *Reconciler, u tree.Update) {
	node := u.AddedNodes[0]
	r.dispatch("renameItem", u, []*tree.Node{node},
		func(ctx context.Context) (any, error) {
			return nil, r.exec.RenameItem(ctx, node.Item.ItemID, node.Name)
		},
		func(any) { r.favorites.Refresh(r.ctx, node.ID) },
	)
}

// Only regular folders are trashed; home, download, trash and system
// folders never match.
func deleteFolderWhen(u tree.Update) bool {
	if !toProcess(u, tree.CmdRemoveNode) {
		return false
	}
	n := single(u.RemovedNodes)
	return n != nil && n.IsFolder(tree.FolderRegular)
}

func deleteFolderThen(r *Reconciler, u tree.Update) {
	node := u.RemovedNodes[0]
	r.dispatch("deleteFolder", u, []*tree.Node{u.Command.ParentNode},
		func(ctx context.Context) (any, error) {
			return nil, r.exec.TrashFolder(ctx, node.Folder.FolderID)
		},
		func(any) { r.favorites.Remove(node.ID) },
	)
}

func deleteDriveWhen(u tree.Update) bool {
	if !toProcess(u, tree.CmdRemoveNode) {
		return false
	}
	n := single(u.RemovedNodes)
	return n != nil && n.Kind == tree.KindDrive
}

func deleteDriveThen(r *Reconciler, u tree.Update) {
	node := u.RemovedNodes[0]
	r.dispatch("deleteDrive", u, []*tree.Node{u.Command.ParentNode},
		func(ctx context.Context) (any, error) {
			return nil, r.exec.DeleteDrive(ctx, node.DriveID)
		},
		nil,
	)
}

func deleteItemWhen(u tree.Update) bool {
	if !toProcess(u, tree.CmdRemoveNode) {
		return false
	}
	n := single(u.RemovedNodes)
	return n != nil && n.Kind == tree.KindItem
}

func deleteItemThen(r *Reconciler, u tree.Update) {
	node := u.RemovedNodes[0]
	r.dispatch("deleteItem", u, []*tree.Node{u.Command.ParentNode},
		func(ctx context.Context) (any, error) {
			return nil, r.exec.TrashItem(ctx, node.Item.ItemID)
		},
		func(any) { r.favorites.Remove(node.ID) },
	)
}

// newAsset materializes future placeholders. Progress nodes run their own
// response and are left alone.
func newAssetWhen(u tree.Update) bool {
	if !toProcess(u, tree.CmdAddChild) {
		return false
	}
	n := single(u.AddedNodes)
	if n == nil || n.Future == nil || n.Future.Response == nil {
		return false
	}
	return n.Kind == tree.KindFutureFolder || n.Kind == tree.KindFutureItem
}

func newAssetThen(r *Reconciler, u tree.Update) {
	node := u.AddedNodes[0]
	r.dispatch("newAsset", u, []*tree.Node{node, u.Command.ParentNode},
		node.Future.Response,
		func(resp any) {
			if node.Future.OnResponse != nil {
				node.Future.OnResponse(resp, node)
			}
		},
	)
}
