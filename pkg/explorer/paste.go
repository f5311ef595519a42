package explorer

import (
	"context"
	"fmt"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

// PasteItem pastes the clipboard into destination, a drive or a folder. It
// inserts a placeholder that the reconciler turns into a borrow or a move.
// An empty clipboard is a no-op.
func (s *State) PasteItem(ctx context.Context, destination *tree.Node) (*tree.Node, error) {
	s.mu.Lock()
	cut := s.itemCut
	s.mu.Unlock()
	if cut == nil {
		return nil, nil
	}

	source, err := s.groupOf(cut.Node)
	if err != nil {
		return nil, err
	}
	target, err := s.groupOf(destination)
	if err != nil {
		return nil, err
	}
	if _, err := target.ResolveChildren(ctx, destination.ID); err != nil {
		return nil, err
	}

	p := paste{
		s:           s,
		node:        cut.Node,
		source:      source,
		target:      target,
		destination: destination,
		destID:      containerID(destination),
		uid:         tree.NewCorrelationID(),
	}
	var placeholder *tree.Node
	switch {
	case cut.Node.Kind == tree.KindItem && cut.Type == CutBorrow:
		placeholder = p.borrowItem()
	case cut.Node.Kind == tree.KindItem && cut.Type == CutMove:
		placeholder = p.moveItem()
	case cut.Node.IsFolder(tree.FolderRegular) && cut.Type == CutMove:
		if p.intoItself() {
			return nil, fmt.Errorf("cannot move folder %q into itself", cut.Node.ID)
		}
		placeholder = p.moveFolder()
	default:
		return nil, fmt.Errorf("cannot %s node %q of kind %s", cut.Type, cut.Node.ID, cut.Node.Kind)
	}

	s.mu.Lock()
	if s.itemCut == cut {
		s.itemCut = nil
	}
	s.mu.Unlock()
	cut.Node.RemoveStatus(tree.StatusCut, "")

	destination.AddStatus(tree.StatusRequestPending, p.uid)
	if err := target.AddChild(destination.ID, placeholder); err != nil {
		destination.RemoveStatus(tree.StatusRequestPending, p.uid)
		return nil, err
	}
	return placeholder, nil
}

type paste struct {
	s           *State
	node        *tree.Node
	source      *TreeGroup
	target      *TreeGroup
	destination *tree.Node
	destID      string
	uid         string
}

func (p paste) intoItself() bool {
	for _, n := range p.target.Snapshot().Path(p.destination.ID) {
		if n.ID == p.node.ID {
			return true
		}
	}
	return false
}

// settle swaps the placeholder for the authoritative node. A moved node is
// first dropped from its source tree so its id is free in the destination.
func (p paste) settle(placeholder, node *tree.Node, moved bool) {
	defer p.destination.RemoveStatus(tree.StatusRequestPending, p.uid)
	if moved {
		p.source.RemoveNode(p.node.ID, tree.WithoutSave())
	}
	if node == nil {
		p.s.logger.WithField("id", p.node.ID).Warn("pasted node missing from backend response")
		p.target.RemoveNode(placeholder.ID, tree.WithoutSave())
		return
	}
	if err := p.target.ReplaceNode(placeholder.ID, node, tree.WithoutSave()); err != nil {
		p.s.logger.WithError(err).Warn("paste placeholder vanished")
	}
}

func (p paste) borrowItem() *tree.Node {
	return tree.NewFutureItemNode(tree.FutureParams{
		Name: p.node.Name,
		Icon: tree.ItemIcon(p.node.Item.Kind),
		Response: func(ctx context.Context) (any, error) {
			return p.s.exec.Borrow(ctx, p.node.Item.ItemID, p.destID)
		},
		OnResponse: func(resp any, placeholder *tree.Node) {
			it := *resp.(*backend.Item)
			if it.Kind == "" {
				it.Kind = p.node.Item.Kind
			}
			p.settle(placeholder, itemNode(p.fill(it)), false)
		},
	})
}

func (p paste) moveItem() *tree.Node {
	return tree.NewFutureItemNode(tree.FutureParams{
		Name: p.node.Name,
		Icon: tree.ItemIcon(p.node.Item.Kind),
		Response: func(ctx context.Context) (any, error) {
			return p.s.exec.Move(ctx, p.node.Item.ItemID, p.destID)
		},
		OnResponse: func(resp any, placeholder *tree.Node) {
			var moved *tree.Node
			for _, it := range resp.(*backend.Children).Items {
				if it.TreeID == p.node.Item.ItemID {
					if it.Kind == "" {
						it.Kind = p.node.Item.Kind
					}
					moved = itemNode(p.fill(it))
					break
				}
			}
			p.settle(placeholder, moved, true)
		},
	})
}

func (p paste) moveFolder() *tree.Node {
	return tree.NewFutureFolderNode(tree.FutureParams{
		Name: p.node.Name,
		Icon: tree.FolderIcon(tree.FolderRegular),
		Response: func(ctx context.Context) (any, error) {
			return p.s.exec.Move(ctx, p.node.Folder.FolderID, p.destID)
		},
		OnResponse: func(resp any, placeholder *tree.Node) {
			var moved *tree.Node
			for _, f := range resp.(*backend.Children).Folders {
				if f.FolderID == p.node.Folder.FolderID {
					f.GroupID = p.destination.GroupID
					f.DriveID = p.destination.DriveID
					f.ParentFolderID = p.destID
					moved = folderNode(p.s.exec, f)
					break
				}
			}
			p.settle(placeholder, moved, true)
		},
	})
}

// fill places an item returned by the backend in the destination.
func (p paste) fill(it backend.Item) backend.Item {
	it.GroupID = p.destination.GroupID
	it.DriveID = p.destination.DriveID
	it.FolderID = p.destID
	return it
}
