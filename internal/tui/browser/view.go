package browser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattsolo1/grove-core/tui/theme"

	"github.com/mattsolo1/grove-explorer/pkg/manifest"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

func (m Model) View() string {
	if m.help.ShowAll {
		return m.help.View()
	}
	if m.confirm.Active {
		return "\n" + m.confirm.View()
	}

	body := m.renderTree()
	if m.menu.active {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, "  ", m.renderMenu())
	} else if m.showDetails {
		if n := m.current(); n != nil {
			body = lipgloss.JoinHorizontal(lipgloss.Top, body, "  ", m.renderDetails(n))
		}
	}

	parts := []string{m.renderHeader(), ""}
	if m.filterInput.Focused() || m.filterInput.Value() != "" {
		parts = append(parts, m.filterInput.View(), "")
	}
	parts = append(parts, body, "")
	if m.renaming != nil {
		parts = append(parts, theme.DefaultTheme.Info.Render("Rename: ")+m.renameInput.View())
	} else if m.statusMessage != "" {
		parts = append(parts, theme.DefaultTheme.Muted.Render(m.statusMessage))
	} else {
		parts = append(parts, m.renderCut())
	}
	parts = append(parts, m.help.View())

	return "\n" + lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	header := theme.DefaultTheme.Header.Render("Explorer · " + m.tg.Name)
	if open := m.svc.State.CurrentFolder(); open != nil && open.Tree == m.tg && open.Folder != nil {
		crumbs := tree.ReducePath(m.tg.Snapshot(), open.Folder.ID, func(n *tree.Node) string { return n.Name })
		if len(crumbs) > 0 {
			header += "  " + theme.DefaultTheme.Muted.Render(strings.Join(crumbs, " / "))
		}
	}
	return header
}

func (m Model) renderTree() string {
	if len(m.rows) == 0 {
		if m.filterInput.Value() != "" {
			return theme.DefaultTheme.Muted.Render("No loaded node matches.")
		}
		return "Loading..."
	}

	var b strings.Builder
	viewportHeight := m.getViewportHeight()
	start := m.scrollOffset
	end := start + viewportHeight
	if end > len(m.rows) {
		end = len(m.rows)
	}

	nameWidth := m.width - 30
	if m.menu.active || m.showDetails {
		nameWidth -= 40
	}

	for i := start; i < end; i++ {
		r := m.rows[i]
		n := r.node
		if latest := m.tg.Get(n.ID); latest != nil {
			n = latest
		}

		cursor := "  "
		if i == m.cursor {
			cursor = theme.DefaultTheme.Highlight.Render("▶ ")
		}
		fold := "  "
		if r.isContainer() && r.path == "" {
			fold = "▸ "
			if m.tg.IsExpanded(n.ID) {
				fold = "▾ "
			}
		}

		line := fmt.Sprintf("%s%s%s%s %s", cursor, strings.Repeat("  ", r.depth), fold, glyph(n, m.frame), truncate(n.Name, nameWidth))
		if i == m.cursor {
			line = theme.DefaultTheme.Selected.Render(line)
		} else if n.Kind == tree.KindDeletedFolder || n.Kind == tree.KindDeletedItem || n.Status().Has(tree.StatusCut) {
			line = lipgloss.NewStyle().Faint(true).Render(line)
		}
		if r.path != "" {
			line += "  " + theme.DefaultTheme.Muted.Render(r.path)
		}
		if st := badges(n); st != "" {
			line += " " + theme.DefaultTheme.Info.Render(st)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(m.rows) > viewportHeight {
		b.WriteString(lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf(" (%d-%d of %d)", start+1, end, len(m.rows))))
	}
	return b.String()
}

func (m Model) renderMenu() string {
	var b strings.Builder
	b.WriteString(theme.DefaultTheme.Header.Render(m.menu.node.Name))
	b.WriteString("\n")
	var section string
	for i, a := range m.menu.actions {
		if string(a.Section) != section {
			section = string(a.Section)
			b.WriteString(theme.DefaultTheme.Muted.Render(section))
			b.WriteString("\n")
		}
		line := "  " + a.Name
		switch {
		case i == m.menu.cursor:
			line = theme.DefaultTheme.Selected.Render("▶ " + a.Name)
		case !a.Enabled():
			line = lipgloss.NewStyle().Faint(true).Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.DefaultTheme.Colors.Orange).
		Padding(0, 1).
		Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderDetails(n *tree.Node) string {
	attrs := manifest.Attributes(n)
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(theme.DefaultTheme.Header.Render(n.Name))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", theme.DefaultTheme.Muted.Render("node"), n.Kind)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s %s\n", theme.DefaultTheme.Muted.Render(k), truncate(attrs[k], 36))
	}
	if kind, id, ok := favoriteKey(n); ok && m.svc.Favorites != nil {
		fmt.Fprintf(&b, "%s %t\n", theme.DefaultTheme.Muted.Render("favorite"), m.svc.Favorites.IsFavorite(kind, id))
	}
	if apps := m.svc.Manifests.Current().OpeningApps(n); len(apps) > 0 {
		names := make([]string, 0, len(apps))
		for _, a := range apps {
			names = append(names, a.App.DisplayName)
		}
		fmt.Fprintf(&b, "%s %s\n", theme.DefaultTheme.Muted.Render("opens with"), strings.Join(names, ", "))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		Padding(0, 1).
		Width(40).
		Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderCut() string {
	cut := m.svc.State.ItemCut()
	if cut == nil || cut.Node == nil {
		return ""
	}
	return theme.DefaultTheme.Muted.Render(fmt.Sprintf("%s: %s", cut.Type, cut.Node.Name))
}
