package browser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-explorer/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-explorer/pkg/actions"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.SetSize(msg.Width, msg.Height)
		m.adjustScroll()
		return m, nil

	case treeChangedMsg:
		m.refreshRows()
		return m, waitForUpdate(m.updates)

	case tickMsg:
		m.frame++
		return m, tick()

	case childrenLoadedMsg:
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("Error loading children: %v", msg.err)
		}
		m.refreshRows()
		return m, nil

	case actionsLoadedMsg:
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("Error fetching permissions: %v", msg.err)
			return m, nil
		}
		if len(msg.actions) == 0 {
			m.statusMessage = fmt.Sprintf("No action available on %s", msg.node.Name)
			return m, nil
		}
		m.menu = menu{active: true, node: msg.node, actions: menuOrder(msg.actions)}
		return m, nil

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case groupLoadedMsg:
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("Error switching group: %v", msg.err)
			return m, nil
		}
		m.filterInput.SetValue("")
		m.setGroup(msg.tg)
		m.statusMessage = fmt.Sprintf("Group %s", msg.tg.Name)
		return m, m.resolveExpandedCmd()

	case confirm.ConfirmedMsg:
		n := m.pendingDelete
		m.pendingDelete = nil
		if n == nil {
			return m, nil
		}
		m.statusMessage = fmt.Sprintf("Deleting %s...", n.Name)
		return m, runNamedCmd(m.svc, n, "delete", "delete drive", "clear trash")

	case confirm.CancelledMsg:
		m.pendingDelete = nil
		m.statusMessage = ""
		return m, nil

	case tea.KeyMsg:
		if m.help.ShowAll {
			m.help.Toggle()
			return m, nil
		}
		if m.confirm.Active {
			m.confirm, cmd = m.confirm.Update(msg)
			return m, cmd
		}
		if m.renaming != nil {
			return m.updateRename(msg)
		}
		if m.menu.active {
			return m.updateMenu(msg)
		}

		if m.filterInput.Focused() {
			switch {
			case key.Matches(msg, m.keys.Back):
				m.filterInput.Blur()
				m.filterInput.SetValue("")
				m.buildRows()
				return m, nil
			case key.Matches(msg, m.keys.Confirm):
				m.filterInput.Blur()
				return m, nil
			default:
				m.filterInput, cmd = m.filterInput.Update(msg)
				m.cursor = 0
				m.buildRows()
				return m, cmd
			}
		}

		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.current()
	if !key.Matches(msg, m.keys.GoToTop) {
		m.lastKey = ""
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if err := m.saveState(); err != nil {
			m.statusMessage = fmt.Sprintf("Error saving state: %v", err)
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.Toggle()
	case key.Matches(msg, m.keys.Back):
		if m.filterInput.Value() != "" {
			m.filterInput.SetValue("")
			m.buildRows()
		}
		m.statusMessage = ""
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.adjustScroll()
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.adjustScroll()
		}
	case key.Matches(msg, m.keys.PageUp):
		m.moveBy(-m.pageSize())
	case key.Matches(msg, m.keys.PageDown):
		m.moveBy(m.pageSize())
	case key.Matches(msg, m.keys.GoToTop):
		// gg
		if m.lastKey == "g" {
			m.cursor = 0
			m.adjustScroll()
			m.lastKey = ""
		} else {
			m.lastKey = "g"
		}
	case key.Matches(msg, m.keys.GoToBottom):
		if len(m.rows) > 0 {
			m.cursor = len(m.rows) - 1
			m.adjustScroll()
		}
	case key.Matches(msg, m.keys.Search):
		m.filterInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.NextGroup):
		m.statusMessage = "Loading next group..."
		return m, nextGroupCmd(m.svc, m.tg.GroupID)
	case key.Matches(msg, m.keys.ShowDetails):
		m.showDetails = !m.showDetails

	case n == nil:
		return m, nil

	case key.Matches(msg, m.keys.Expand):
		return m.expand(n)
	case key.Matches(msg, m.keys.Collapse):
		if m.tg.IsExpanded(n.ID) && !n.IsLeaf() {
			m.collapse(n.ID)
			m.buildRows()
		} else if parent := m.tg.Snapshot().Parent(n.ID); parent != nil {
			m.selectID(parent.ID)
		}
	case key.Matches(msg, m.keys.Confirm):
		if n.Kind == tree.KindItem {
			m.svc.State.SelectItem(n)
			m.showDetails = true
			return m, nil
		}
		if n.Kind == tree.KindFolder || n.Kind == tree.KindDrive {
			m.svc.State.OpenFolder(n)
		}
		if m.tg.IsExpanded(n.ID) {
			m.collapse(n.ID)
			m.buildRows()
			return m, nil
		}
		return m.expand(n)
	case key.Matches(msg, m.keys.Open):
		return m, openDefaultCmd(m.svc, n)
	case key.Matches(msg, m.keys.Menu):
		return m, loadActionsCmd(m.svc, n)
	case key.Matches(msg, m.keys.NewFolder):
		return m, runNamedCmd(m.svc, n, "new folder")
	case key.Matches(msg, m.keys.Rename):
		return m, runNamedCmd(m.svc, n, "rename")
	case key.Matches(msg, m.keys.Delete):
		prompt, ok := deletePrompt(n)
		if !ok {
			m.statusMessage = fmt.Sprintf("%s cannot be deleted", n.Name)
			return m, nil
		}
		m.pendingDelete = n
		m.confirm.Activate(n.ID, prompt, n.ID)
	case key.Matches(msg, m.keys.Cut):
		return m, runNamedCmd(m.svc, n, "cut")
	case key.Matches(msg, m.keys.Borrow):
		return m, runNamedCmd(m.svc, n, "borrow item")
	case key.Matches(msg, m.keys.Paste):
		return m, runNamedCmd(m.svc, n, "paste")
	case key.Matches(msg, m.keys.Refresh):
		return m, runNamedCmd(m.svc, n, "refresh")
	case key.Matches(msg, m.keys.Favorite):
		if n.Kind == tree.KindGroup {
			on, err := m.svc.Favorites.ToggleGroup(m.tg.GroupID, m.tg.Name)
			m.statusMessage = favoriteStatus(n.Name, on, err)
			return m, nil
		}
		return m, runNamedCmd(m.svc, n, "add to favorites", "un-favorite")
	case key.Matches(msg, m.keys.CopyID):
		return m, runNamedCmd(m.svc, n, "copy explorer's id", "copy asset's id", "copy file's id")
	}
	return m, nil
}

// expand shows the children of n, loading them when needed. On an already
// expanded node the cursor moves to its first child.
func (m Model) expand(n *tree.Node) (tea.Model, tea.Cmd) {
	if n.IsLeaf() {
		return m, nil
	}
	if m.tg.IsExpanded(n.ID) && n.Resolved() {
		if m.cursor+1 < len(m.rows) && m.rows[m.cursor+1].depth > m.rows[m.cursor].depth {
			m.cursor++
			m.adjustScroll()
		}
		return m, nil
	}
	m.tg.Expand(n.ID)
	m.buildRows()
	if n.Resolved() {
		return m, nil
	}
	return m, resolveCmd(m.tg, n.ID)
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Menu), key.Matches(msg, m.keys.Quit):
		m.menu = menu{}
	case key.Matches(msg, m.keys.Up):
		if m.menu.cursor > 0 {
			m.menu.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.menu.cursor < len(m.menu.actions)-1 {
			m.menu.cursor++
		}
	case key.Matches(msg, m.keys.Confirm):
		a := m.menu.actions[m.menu.cursor]
		if !a.Enabled() {
			m.statusMessage = fmt.Sprintf("%s: permission denied", a.Name)
			return m, nil
		}
		m.menu = menu{}
		if isDelete(a.Name) {
			m.pendingDelete = a.Node
			prompt, _ := deletePrompt(a.Node)
			m.confirm.Activate(a.Node.ID, prompt, a.Node.ID)
			return m, nil
		}
		return m, runActionCmd(a.Node, a)
	}
	return m, nil
}

func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.renaming
	switch {
	case key.Matches(msg, m.keys.Back):
		n.RemoveStatus(tree.StatusRenaming, "")
		m.renaming = nil
		m.renameInput.Blur()
		m.statusMessage = ""
		return m, nil
	case msg.Type == tea.KeyEnter:
		name := strings.TrimSpace(m.renameInput.Value())
		m.renaming = nil
		m.renameInput.Blur()
		if name == "" || name == n.Name {
			n.RemoveStatus(tree.StatusRenaming, "")
			return m, nil
		}
		m.statusMessage = fmt.Sprintf("Renaming to %s...", name)
		return m, renameCmd(m.svc, n, name)
	}
	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

func (m Model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, errNoAction) {
			m.statusMessage = fmt.Sprintf("%s: not available on %s", msg.name, msg.node.Name)
		} else {
			m.statusMessage = fmt.Sprintf("Error (%s): %v", msg.name, msg.err)
		}
		return m, nil
	}
	switch msg.name {
	case "rename":
		// The action flagged the node; collect the new name.
		if msg.node.Status().Has(tree.StatusRenaming) {
			m.renaming = msg.node
			m.renameInput.SetValue(msg.node.Name)
			m.renameInput.CursorEnd()
			m.renameInput.Focus()
			m.statusMessage = ""
			return m, textinput.Blink
		}
		m.statusMessage = "Renamed"
	case "new folder":
		m.tg.Expand(msg.node.ID)
		m.buildRows()
		m.statusMessage = fmt.Sprintf("Creating a folder in %s", msg.node.Name)
		if !msg.node.Resolved() {
			return m, resolveCmd(m.tg, msg.node.ID)
		}
	case "cut", "borrow item":
		m.statusMessage = fmt.Sprintf("%s: %s, paste it in a folder with p", msg.name, msg.node.Name)
	case "add to favorites", "un-favorite":
		m.statusMessage = favoriteStatus(msg.node.Name, msg.name == "add to favorites", nil)
	default:
		m.statusMessage = fmt.Sprintf("%s: %s", msg.name, msg.node.Name)
	}
	m.refreshRows()
	return m, nil
}

// refreshRows rebuilds the rows keeping the cursor on the same node.
func (m *Model) refreshRows() {
	var id string
	if n := m.current(); n != nil {
		id = n.ID
	}
	m.buildRows()
	if id != "" {
		m.selectID(id)
	}
}

func (m Model) pageSize() int {
	if size := m.getViewportHeight() / 2; size > 0 {
		return size
	}
	return 1
}

func (m *Model) moveBy(delta int) {
	m.cursor += delta
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.adjustScroll()
}

func isDelete(name string) bool {
	return name == "delete" || name == "delete drive" || name == "clear trash"
}

func deletePrompt(n *tree.Node) (string, bool) {
	switch {
	case n.IsTrash():
		return "Permanently delete everything in the trash?", true
	case n.Kind == tree.KindDrive:
		return fmt.Sprintf("Delete the drive %s? It must have an empty trash.", n.Name), true
	case n.Kind == tree.KindItem, n.IsFolder(tree.FolderRegular):
		return fmt.Sprintf("Move %s to the trash?", n.Name), true
	}
	return "", false
}

func favoriteStatus(name string, on bool, err error) string {
	switch {
	case err != nil:
		return fmt.Sprintf("Error updating favorites: %v", err)
	case on:
		return fmt.Sprintf("Added %s to favorites", name)
	}
	return fmt.Sprintf("Removed %s from favorites", name)
}

// menuOrder sorts actions by section, keeping catalog order inside one.
func menuOrder(all []actions.Action) []actions.Action {
	by := actions.BySection(all)
	out := make([]actions.Action, 0, len(all))
	for _, s := range actions.Sections {
		out = append(out, by[s]...)
	}
	return out
}
