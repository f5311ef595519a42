// Package actions computes the actions available on an explorer node: the
// generic catalog, the context menu actions contributed by installed
// applications and the "open with" entries.
package actions

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mattsolo1/grove-explorer/pkg/explorer"
	"github.com/mattsolo1/grove-explorer/pkg/favorites"
	"github.com/mattsolo1/grove-explorer/pkg/manifest"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

type Section string

const (
	SectionModify        Section = "Modify"
	SectionMove          Section = "Move"
	SectionNew           Section = "New"
	SectionIO            Section = "IO"
	SectionDisposition   Section = "Disposition"
	SectionInfo          Section = "Info"
	SectionCustomActions Section = "CustomActions"
	SectionOpen          Section = "Open"
)

// Sections lists the sections in presentation order.
var Sections = []Section{
	SectionOpen, SectionNew, SectionModify, SectionMove, SectionIO,
	SectionDisposition, SectionInfo, SectionCustomActions,
}

// Action is one entry of a node's context menu.
type Action struct {
	Node       *tree.Node
	Icon       string
	Name       string
	Section    Section
	Enabled    func() bool
	Applicable func() bool
	Exe        func(ctx context.Context) error
}

// Host performs the side effects that belong to the embedding application.
type Host interface {
	Download(ctx context.Context, url, filename string) error
	CopyToClipboard(text string) error
}

// ManifestSource provides the current install manifest.
type ManifestSource interface {
	Current() *manifest.Manifest
}

// Catalog builds actions against an explorer session.
type Catalog struct {
	state     *explorer.State
	favorites *favorites.Facade
	manifests ManifestSource
	host      Host
	baseURL   string
	logger    *logrus.Entry
}

type Option func(*Catalog)

func WithFavorites(f *favorites.Facade) Option { return func(c *Catalog) { c.favorites = f } }
func WithManifest(m ManifestSource) Option    { return func(c *Catalog) { c.manifests = m } }
func WithHost(h Host) Option                  { return func(c *Catalog) { c.host = h } }

// WithBaseURL sets the platform URL download and file links point to.
func WithBaseURL(u string) Option {
	return func(c *Catalog) { c.baseURL = strings.TrimSuffix(u, "/") }
}

func NewCatalog(state *explorer.State, logger *logrus.Entry, opts ...Option) *Catalog {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	c := &Catalog{state: state, logger: logger.WithField("component", "actions")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Catalog) manifest() *manifest.Manifest {
	if c.manifests == nil {
		return &manifest.Manifest{}
	}
	if m := c.manifests.Current(); m != nil {
		return m
	}
	return &manifest.Manifest{}
}

// eligible excludes placeholders, deleted entries and groups.
func eligible(n *tree.Node) bool {
	switch n.Kind {
	case tree.KindItem, tree.KindFolder, tree.KindDrive:
		return true
	}
	return false
}

// Actions fetches the permissions on n and returns its applicable actions.
func (c *Catalog) Actions(ctx context.Context, n *tree.Node) ([]Action, error) {
	if n == nil || !eligible(n) {
		return nil, nil
	}
	var perms Permissions
	var m *manifest.Manifest
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		perms.Group, err = FetchGroupPermissions(gctx, n.GroupID)
		return err
	})
	if n.Kind == tree.KindItem {
		g.Go(func() error {
			var err error
			perms.Item, err = FetchItemPermissions(gctx, c.state.Executor(), n)
			return err
		})
	}
	g.Go(func() error {
		m = c.manifest()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c.compute(n, perms, m), nil
}

// Compute returns the applicable actions of n for the given permissions,
// using the current install manifest.
func (c *Catalog) Compute(n *tree.Node, perms Permissions) []Action {
	if n == nil || !eligible(n) {
		return nil
	}
	return c.compute(n, perms, c.manifest())
}

func (c *Catalog) compute(n *tree.Node, perms Permissions, m *manifest.Manifest) []Action {
	all := make([]Action, 0, len(generic))
	for _, build := range generic {
		all = append(all, build(c, n, perms))
	}
	all = append(all, c.customActions(n, m)...)
	all = append(all, c.openWithActions(n, m)...)

	out := all[:0]
	for _, a := range all {
		if a.Applicable() {
			out = append(out, a)
		}
	}
	return out
}

func (c *Catalog) launch(cdnPackage string, parameters map[string]string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return c.state.LaunchApplication(ctx, cdnPackage, parameters)
	}
}

func (c *Catalog) customActions(n *tree.Node, m *manifest.Manifest) []Action {
	var out []Action
	for _, a := range m.ContextMenuActionsFor(n) {
		out = append(out, Action{
			Node:       n,
			Icon:       a.Icon,
			Name:       a.Name,
			Section:    SectionCustomActions,
			Enabled:    always,
			Applicable: always,
			Exe:        c.launch(a.Application, manifest.EvaluateParameters(n, a.Parameters)),
		})
	}
	return out
}

func (c *Catalog) openWithActions(n *tree.Node, m *manifest.Manifest) []Action {
	var out []Action
	for _, app := range m.OpeningApps(n) {
		p := app.Parametrization
		out = append(out, Action{
			Node:       n,
			Icon:       "fas fa-folder-open",
			Name:       strings.TrimSpace(app.App.DisplayName + " " + p.Name),
			Section:    SectionOpen,
			Enabled:    always,
			Applicable: func() bool { return manifest.EvaluateMatch(n, p.Match) },
			Exe:        c.launch(app.App.CDNPackage, manifest.EvaluateParameters(n, p.Parameters)),
		})
	}
	return out
}

// BySection groups actions by section. Iterate Sections for display order.
func BySection(all []Action) map[Section][]Action {
	out := make(map[Section][]Action)
	for _, a := range all {
		out[a.Section] = append(out[a.Section], a)
	}
	return out
}

// Find returns the first action named name.
func Find(all []Action, name string) (Action, bool) {
	for _, a := range all {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}
