package browser

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattsolo1/grove-core/tui/components/help"
	"github.com/sahilm/fuzzy"

	"github.com/mattsolo1/grove-explorer/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-explorer/pkg/actions"
	"github.com/mattsolo1/grove-explorer/pkg/explorer"
	"github.com/mattsolo1/grove-explorer/pkg/service"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

// row is a single line of the tree view.
type row struct {
	node  *tree.Node
	depth int
	// path is the breadcrumb shown for filter results.
	path string
}

func (r row) isContainer() bool {
	switch r.node.Kind {
	case tree.KindGroup, tree.KindDrive, tree.KindFolder:
		return true
	}
	return false
}

// menu is the context menu of one node.
type menu struct {
	active  bool
	node    *tree.Node
	actions []actions.Action
	cursor  int
}

// subscription is shared by every copy of the model.
type subscription struct {
	cancel func()
}

// Model is the main model for the explorer TUI
type Model struct {
	svc  *service.Service
	tg   *explorer.TreeGroup
	rows []row

	cursor       int
	scrollOffset int
	keys         KeyMap
	help         help.Model
	width        int
	height       int
	lastKey      string // For detecting 'gg'
	frame        int

	filterInput   textinput.Model
	statusMessage string
	showDetails   bool

	confirm       confirm.Model
	pendingDelete *tree.Node

	renameInput textinput.Model
	renaming    *tree.Node

	menu menu

	updates chan struct{}
	sub     *subscription
}

// New creates a new TUI model over the tree of tg.
func New(svc *service.Service, tg *explorer.TreeGroup) Model {
	helpModel := help.NewBuilder().
		WithKeys(keys).
		WithTitle("Explorer - Help").
		Build()

	ti := textinput.New()
	ti.Placeholder = "Filter loaded nodes..."
	ti.CharLimit = 100

	renameInput := textinput.New()
	renameInput.Placeholder = "Enter new name..."
	renameInput.CharLimit = 200
	renameInput.Width = 60

	m := Model{
		svc:         svc,
		keys:        keys,
		help:        helpModel,
		filterInput: ti,
		renameInput: renameInput,
		confirm:     confirm.New(),
		updates:     make(chan struct{}, 1),
		sub:         &subscription{},
	}
	m.setGroup(tg)
	return m
}

// setGroup switches the displayed tree and restores the nodes expanded in a
// previous session.
func (m *Model) setGroup(tg *explorer.TreeGroup) {
	if m.sub.cancel != nil {
		m.sub.cancel()
	}
	m.tg = tg
	if state, err := loadState(); err == nil {
		if ids := state.Expanded[tg.GroupID]; len(ids) > 0 && len(tg.Expanded()) <= 1 {
			tg.Expand(ids...)
		}
	}
	tg.Expand(tg.Root().ID)
	updates := m.updates
	m.sub.cancel = tg.Subscribe(func(tree.Update) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	m.cursor, m.scrollOffset = 0, 0
	m.buildRows()
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForUpdate(m.updates),
		tick(),
		m.resolveExpandedCmd(),
	)
}

// buildRows flattens the expanded part of the tree, or the filter matches.
func (m *Model) buildRows() {
	snap := m.tg.Snapshot()
	if pattern := strings.TrimSpace(m.filterInput.Value()); pattern != "" {
		m.rows = m.filterRows(snap, pattern)
	} else {
		m.rows = nil
		m.appendRows(snap.Root(), 0)
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.adjustScroll()
}

func (m *Model) appendRows(n *tree.Node, depth int) {
	m.rows = append(m.rows, row{node: n, depth: depth})
	if !m.tg.IsExpanded(n.ID) {
		return
	}
	for _, c := range explorer.SortNodes(n.Children(), m.svc.Config.Explorer.Language) {
		m.appendRows(c, depth+1)
	}
}

// nodeSource adapts loaded nodes to fuzzy matching on their names.
type nodeSource []*tree.Node

func (s nodeSource) String(i int) string { return s[i].Name }
func (s nodeSource) Len() int            { return len(s) }

func (m *Model) filterRows(snap *tree.Snapshot, pattern string) []row {
	var nodes nodeSource
	snap.Walk(func(n *tree.Node, depth int) bool {
		if depth > 0 {
			nodes = append(nodes, n)
		}
		return true
	})
	matches := fuzzy.FindFrom(pattern, nodes)
	rows := make([]row, 0, len(matches))
	for _, match := range matches {
		n := nodes[match.Index]
		crumbs := tree.ReducePath(snap, n.ID, func(p *tree.Node) string { return p.Name })
		rows = append(rows, row{node: n, path: strings.Join(crumbs[:len(crumbs)-1], " / ")})
	}
	return rows
}

func (m Model) current() *tree.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	// rows hold the node as rendered; read the latest copy
	if n := m.tg.Get(m.rows[m.cursor].node.ID); n != nil {
		return n
	}
	return m.rows[m.cursor].node
}

// selectID moves the cursor onto id when it is displayed.
func (m *Model) selectID(id string) {
	for i, r := range m.rows {
		if r.node.ID == id {
			m.cursor = i
			m.adjustScroll()
			return
		}
	}
}

func (m *Model) collapse(id string) {
	var keep []string
	for _, e := range m.tg.Expanded() {
		if e != id {
			keep = append(keep, e)
		}
	}
	m.tg.SetExpanded(keep)
}

func (m Model) getViewportHeight() int {
	// header, blank, blank, status, footer
	h := m.height - 6
	if m.filterInput.Focused() || m.filterInput.Value() != "" {
		h -= 2
	}
	if h < 1 {
		return 1
	}
	return h
}

func (m *Model) adjustScroll() {
	viewportHeight := m.getViewportHeight()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+viewportHeight {
		m.scrollOffset = m.cursor - viewportHeight + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

// groups returns the loaded trees ordered by name, the private group first.
func (m Model) groups() []*explorer.TreeGroup {
	all := m.svc.State.Groups()
	private := m.svc.Config.Explorer.PrivateGroupName
	sort.Slice(all, func(i, j int) bool {
		if (all[i].Name == private) != (all[j].Name == private) {
			return all[i].Name == private
		}
		return all[i].Name < all[j].Name
	})
	return all
}
