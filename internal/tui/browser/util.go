package browser

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mattsolo1/grove-explorer/pkg/favorites"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// glyph is the terminal rendering of a node icon.
func glyph(n *tree.Node, frame int) string {
	switch n.Kind {
	case tree.KindGroup:
		if n.Group != nil && n.Group.Kind == tree.GroupUser {
			return "◉"
		}
		return "◎"
	case tree.KindDrive:
		return "▤"
	case tree.KindFolder:
		switch n.Folder.Kind {
		case tree.FolderHome:
			return "⌂"
		case tree.FolderTrash:
			return "♲"
		case tree.FolderDownload:
			return "⇣"
		case tree.FolderSystem:
			return "⚙"
		}
		return "▸"
	case tree.KindItem:
		if n.Item.Borrowed {
			return "⇄"
		}
		return "▢"
	case tree.KindDeletedFolder, tree.KindDeletedItem:
		return "✗"
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

// badges renders the status tags and transfer progress of a node.
func badges(n *tree.Node) string {
	var parts []string
	if st := n.Status(); st != nil {
		if st.Has(tree.StatusRequestPending) {
			parts = append(parts, "pending")
		}
		if st.Has(tree.StatusCut) {
			parts = append(parts, "cut")
		}
		if st.Has(tree.StatusRenaming) {
			parts = append(parts, "renaming")
		}
	}
	if p := n.Progress(); p != nil {
		parts = append(parts, transferLabel(p))
	}
	if n.Origin != nil && n.Origin.Local && !n.Origin.Remote && n.Kind == tree.KindItem {
		parts = append(parts, "local")
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func transferLabel(p *tree.Progress) string {
	last := p.Last()
	if p.Done() {
		return fmt.Sprintf("%s done", p.Direction)
	}
	if last.Total <= 0 {
		return fmt.Sprintf("%s %s", p.Direction, humanize.Bytes(uint64(last.Transferred)))
	}
	pct := float64(last.Transferred) * 100 / float64(last.Total)
	return fmt.Sprintf("%s %.0f%% of %s", p.Direction, pct, humanize.Bytes(uint64(last.Total)))
}

func truncate(s string, max int) string {
	if max <= 0 || len([]rune(s)) <= max {
		return s
	}
	r := []rune(s)
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func favoriteKey(n *tree.Node) (favorites.Kind, string, bool) {
	switch n.Kind {
	case tree.KindGroup:
		return favorites.KindGroup, n.GroupID, true
	case tree.KindFolder:
		return favorites.KindFolder, n.ID, true
	case tree.KindItem:
		return favorites.KindItem, n.ID, true
	}
	return "", "", false
}
