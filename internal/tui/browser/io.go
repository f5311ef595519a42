package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-explorer/pkg/actions"
	"github.com/mattsolo1/grove-explorer/pkg/explorer"
	"github.com/mattsolo1/grove-explorer/pkg/manifest"
	"github.com/mattsolo1/grove-explorer/pkg/service"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

// treeChangedMsg is sent when the displayed store emitted an update.
type treeChangedMsg struct{}

type tickMsg struct{}

// childrenLoadedMsg is sent once the children of a node are resolved.
type childrenLoadedMsg struct {
	id  string
	err error
}

// actionsLoadedMsg carries the context menu of a node.
type actionsLoadedMsg struct {
	node    *tree.Node
	actions []actions.Action
	err     error
}

// actionDoneMsg is sent after an action ran.
type actionDoneMsg struct {
	node *tree.Node
	name string
	err  error
}

type groupLoadedMsg struct {
	tg  *explorer.TreeGroup
	err error
}

func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return treeChangedMsg{}
	}
}

func tick() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func resolveCmd(tg *explorer.TreeGroup, id string) tea.Cmd {
	return func() tea.Msg {
		_, err := tg.ResolveChildren(context.Background(), id)
		return childrenLoadedMsg{id: id, err: err}
	}
}

// resolveExpandedCmd loads the children of the nodes restored as expanded.
func (m Model) resolveExpandedCmd() tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range m.tg.Expanded() {
		if n := m.tg.Get(id); n != nil && !n.Resolved() {
			cmds = append(cmds, resolveCmd(m.tg, id))
		}
	}
	return tea.Batch(cmds...)
}

func loadActionsCmd(svc *service.Service, n *tree.Node) tea.Cmd {
	return func() tea.Msg {
		all, err := svc.Catalog.Actions(context.Background(), n)
		return actionsLoadedMsg{node: n, actions: all, err: err}
	}
}

func runActionCmd(n *tree.Node, a actions.Action) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{node: n, name: a.Name, err: a.Exe(context.Background())}
	}
}

var errNoAction = errors.New("not available here")

// runNamedCmd runs the first enabled action of n among names.
func runNamedCmd(svc *service.Service, n *tree.Node, names ...string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		all, err := svc.Catalog.Actions(ctx, n)
		if err != nil {
			return actionDoneMsg{node: n, name: names[0], err: err}
		}
		for _, name := range names {
			if a, ok := actions.Find(all, name); ok && a.Enabled() {
				return actionDoneMsg{node: n, name: name, err: a.Exe(ctx)}
			}
		}
		return actionDoneMsg{node: n, name: names[0], err: errNoAction}
	}
}

func renameCmd(svc *service.Service, n *tree.Node, name string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{node: n, name: "rename", err: svc.State.Rename(n, name, true)}
	}
}

func openDefaultCmd(svc *service.Service, n *tree.Node) tea.Cmd {
	return func() tea.Msg {
		app, ok := svc.Manifests.Current().DefaultOpeningApp(n)
		if !ok {
			return actionDoneMsg{node: n, name: "open", err: fmt.Errorf("no application opens %s", n.Name)}
		}
		params := manifest.EvaluateParameters(n, app.Parametrization.Parameters)
		err := svc.State.LaunchApplication(context.Background(), app.App.CDNPackage, params)
		return actionDoneMsg{node: n, name: "open with " + app.App.DisplayName, err: err}
	}
}

// nextGroupCmd loads the group following current among the user's groups.
func nextGroupCmd(svc *service.Service, current string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		info, err := svc.State.Executor().GetUserInfo(ctx)
		if err != nil {
			return groupLoadedMsg{err: err}
		}
		if len(info.Groups) < 2 {
			return groupLoadedMsg{err: errors.New("no other group")}
		}
		next := info.Groups[0].ID
		for i, g := range info.Groups {
			if g.ID == current {
				next = info.Groups[(i+1)%len(info.Groups)].ID
				break
			}
		}
		tg, err := svc.State.SelectGroup(ctx, next)
		return groupLoadedMsg{tg: tg, err: err}
	}
}

// tuiState holds persistent TUI settings
type tuiState struct {
	// Expanded lists the expanded node ids per group id.
	Expanded map[string][]string `json:"expanded"`
}

// stateDir is where the TUI state lives; tests point it elsewhere.
var stateDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".grove", "explorer"), nil
}

// getStateFilePath returns the path to the TUI state file
func getStateFilePath() (string, error) {
	dir, err := stateDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "tui-state.json"), nil
}

// loadState loads the TUI state from disk
func loadState() (*tuiState, error) {
	path, err := getStateFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &tuiState{Expanded: map[string][]string{}}, nil
		}
		return nil, err
	}

	var state tuiState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Expanded == nil {
		state.Expanded = map[string][]string{}
	}
	return &state, nil
}

// saveState records the expanded nodes of every loaded group.
func (m *Model) saveState() error {
	state, err := loadState()
	if err != nil {
		state = &tuiState{Expanded: map[string][]string{}}
	}
	for _, tg := range m.svc.State.Groups() {
		state.Expanded[tg.GroupID] = tg.Expanded()
	}

	path, err := getStateFilePath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
