// Package confirm is a yes/no dialog guarding destructive actions.
package confirm

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattsolo1/grove-core/tui/theme"
)

// ConfirmedMsg is sent when the user accepts. Tag is the value given to
// Activate.
type ConfirmedMsg struct {
	Tag string
}

// CancelledMsg is sent when the user declines.
type CancelledMsg struct {
	Tag string
}

// Model is a confirmation dialog.
type Model struct {
	Active bool
	Prompt string
	// Detail is rendered faint below the prompt.
	Detail string

	tag  string
	keys keyMap
}

func New() Model {
	return Model{keys: defaultKeyMap}
}

// Activate shows the dialog. tag is echoed back in the resulting message.
func (m *Model) Activate(tag, prompt, detail string) {
	m.tag = tag
	m.Prompt = prompt
	m.Detail = detail
	m.Active = true
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.Active {
		return m, nil
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	tag := m.tag
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		m.Active = false
		return m, func() tea.Msg { return ConfirmedMsg{Tag: tag} }
	case key.Matches(keyMsg, m.keys.Cancel):
		m.Active = false
		return m, func() tea.Msg { return CancelledMsg{Tag: tag} }
	}
	return m, nil
}

func (m Model) View() string {
	if !m.Active {
		return ""
	}
	body := theme.DefaultTheme.Header.Render(m.Prompt)
	if m.Detail != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", lipgloss.NewStyle().Faint(true).Render(m.Detail))
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.DefaultTheme.Colors.Orange).
		Padding(1, 2).
		Render(body)

	hint := lipgloss.NewStyle().
		Faint(true).
		Width(lipgloss.Width(box)).
		Align(lipgloss.Center).
		Render("y confirm · n/esc cancel")

	return lipgloss.JoinVertical(lipgloss.Left, box, hint)
}

type keyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

var defaultKeyMap = keyMap{
	Confirm: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "N", "esc"),
		key.WithHelp("n/esc", "cancel"),
	),
}
