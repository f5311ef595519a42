package browser

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/mattsolo1/grove-core/tui/keymap"
)

// KeyMap defines the keybindings for the explorer TUI
type KeyMap struct {
	keymap.Base
	Expand      key.Binding
	Collapse    key.Binding
	Open        key.Binding
	Menu        key.Binding
	Search      key.Binding
	NextGroup   key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	GoToTop     key.Binding
	GoToBottom  key.Binding
	NewFolder   key.Binding
	Rename      key.Binding
	Delete      key.Binding
	Cut         key.Binding
	Borrow      key.Binding
	Paste       key.Binding
	Refresh     key.Binding
	Favorite    key.Binding
	CopyID      key.Binding
	ShowDetails key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Menu, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	baseHelp := k.Base.FullHelp()
	return append(baseHelp, []key.Binding{
		k.Expand,
		k.Collapse,
		k.Open,
		k.Search,
		k.NextGroup,
		k.PageUp,
		k.PageDown,
		k.GoToTop,
		k.GoToBottom,
	}, []key.Binding{
		k.Menu,
		k.NewFolder,
		k.Rename,
		k.Delete,
		k.Cut,
		k.Borrow,
		k.Paste,
	}, []key.Binding{
		k.Refresh,
		k.Favorite,
		k.CopyID,
		k.ShowDetails,
	})
}

var keys = KeyMap{
	Base: keymap.NewBase(),
	Expand: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "expand"),
	),
	Collapse: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "collapse / parent"),
	),
	Open: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open with default app"),
	),
	Menu: key.NewBinding(
		key.WithKeys("."),
		key.WithHelp(".", "actions"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	NextGroup: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next group"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u"),
		key.WithHelp("ctrl+u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "page down"),
	),
	GoToTop: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("gg", "go to top"),
	),
	GoToBottom: key.NewBinding(
		key.WithKeys("G"),
		key.WithHelp("G", "go to bottom"),
	),
	NewFolder: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new folder"),
	),
	Rename: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rename"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Cut: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "cut"),
	),
	Borrow: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "borrow"),
	),
	Paste: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "paste"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "refresh"),
	),
	Favorite: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "toggle favorite"),
	),
	CopyID: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy id"),
	),
	ShowDetails: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "details"),
	),
}
