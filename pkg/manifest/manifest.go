// Package manifest reads the installed-application manifest: the
// applications able to open explorer items and the extra context menu
// actions they contribute.
package manifest

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

// Parametrization is one way an application can open an item.
type Parametrization struct {
	Name string `yaml:"name,omitempty" mapstructure:"name"`
	// Match maps an item attribute to a regular expression the whole value
	// must match. All entries must match.
	Match map[string]string `yaml:"match" mapstructure:"match"`
	// Parameters maps a launch parameter to an item attribute. Values that
	// name no attribute are passed through literally.
	Parameters map[string]string `yaml:"parameters,omitempty" mapstructure:"parameters"`
	Default    bool              `yaml:"default,omitempty" mapstructure:"default"`
}

type Application struct {
	CDNPackage       string            `yaml:"cdnPackage" mapstructure:"cdn_package"`
	DisplayName      string            `yaml:"displayName" mapstructure:"display_name"`
	Parametrizations []Parametrization `yaml:"parametrizations" mapstructure:"parametrizations"`
}

// ContextMenuAction is an action contributed to the item context menu. It
// launches Application with Parameters evaluated against the item.
type ContextMenuAction struct {
	Name        string            `yaml:"name" mapstructure:"name"`
	Icon        string            `yaml:"icon,omitempty" mapstructure:"icon"`
	Match       map[string]string `yaml:"match" mapstructure:"match"`
	Application string            `yaml:"application" mapstructure:"application"`
	Parameters  map[string]string `yaml:"parameters,omitempty" mapstructure:"parameters"`
}

type Manifest struct {
	Applications       []Application       `yaml:"applications" mapstructure:"applications"`
	ContextMenuActions []ContextMenuAction `yaml:"contextMenuActions" mapstructure:"context_menu_actions"`
}

// OpeningApp pairs an application with the parametrization matching an item.
type OpeningApp struct {
	App             Application
	Parametrization Parametrization
}

// Parse decodes a manifest and validates its match patterns.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads the manifest at path. A missing file yields an empty manifest.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

func (m *Manifest) Validate() error {
	for _, app := range m.Applications {
		if app.CDNPackage == "" {
			return fmt.Errorf("application %q has no cdnPackage", app.DisplayName)
		}
		for _, p := range app.Parametrizations {
			if err := validateMatch(p.Match); err != nil {
				return fmt.Errorf("application %s: %w", app.CDNPackage, err)
			}
		}
	}
	for _, a := range m.ContextMenuActions {
		if err := validateMatch(a.Match); err != nil {
			return fmt.Errorf("action %q: %w", a.Name, err)
		}
	}
	return nil
}

func validateMatch(match map[string]string) error {
	for attr, pattern := range match {
		if _, err := compile(pattern); err != nil {
			return fmt.Errorf("match %s: %w", attr, err)
		}
	}
	return nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)$`)
}

// Attributes returns the attributes of an item that match predicates and
// parameters can refer to. Non-item nodes have none.
func Attributes(n *tree.Node) map[string]string {
	if n == nil || n.Item == nil {
		return nil
	}
	return map[string]string{
		"name":     n.Name,
		"kind":     n.Item.Kind,
		"assetId":  n.Item.AssetID,
		"rawId":    n.Item.RawID,
		"itemId":   n.Item.ItemID,
		"folderId": n.Item.FolderID,
		"groupId":  n.GroupID,
		"driveId":  n.DriveID,
		"borrowed": strconv.FormatBool(n.Item.Borrowed),
	}
}

// EvaluateMatch reports whether every predicate of match holds for the item.
// An empty match never holds.
func EvaluateMatch(n *tree.Node, match map[string]string) bool {
	attrs := Attributes(n)
	if attrs == nil || len(match) == 0 {
		return false
	}
	for attr, pattern := range match {
		value, ok := attrs[attr]
		if !ok {
			return false
		}
		re, err := compile(pattern)
		if err != nil || !re.MatchString(value) {
			return false
		}
	}
	return true
}

// EvaluateParameters resolves launch parameters against the item.
func EvaluateParameters(n *tree.Node, parameters map[string]string) map[string]string {
	attrs := Attributes(n)
	out := make(map[string]string, len(parameters))
	for key, ref := range parameters {
		if v, ok := attrs[ref]; ok {
			out[key] = v
			continue
		}
		out[key] = ref
	}
	return out
}

// OpeningApps lists every application parametrization able to open n, in
// manifest order.
func (m *Manifest) OpeningApps(n *tree.Node) []OpeningApp {
	var out []OpeningApp
	for _, app := range m.Applications {
		for _, p := range app.Parametrizations {
			if EvaluateMatch(n, p.Match) {
				out = append(out, OpeningApp{App: app, Parametrization: p})
			}
		}
	}
	return out
}

// DefaultOpeningApp returns the parametrization flagged default among the
// opening apps of n, falling back to the first one.
func (m *Manifest) DefaultOpeningApp(n *tree.Node) (OpeningApp, bool) {
	apps := m.OpeningApps(n)
	if len(apps) == 0 {
		return OpeningApp{}, false
	}
	for _, a := range apps {
		if a.Parametrization.Default {
			return a, true
		}
	}
	return apps[0], true
}

// ContextMenuActionsFor returns the contributed actions matching n.
func (m *Manifest) ContextMenuActionsFor(n *tree.Node) []ContextMenuAction {
	var out []ContextMenuAction
	for _, a := range m.ContextMenuActions {
		if EvaluateMatch(n, a.Match) {
			out = append(out, a)
		}
	}
	return out
}

// Merge appends the applications of other that m does not declare yet.
func (m *Manifest) Merge(other []Application) {
	known := make(map[string]bool, len(m.Applications))
	for _, app := range m.Applications {
		known[app.CDNPackage] = true
	}
	for _, app := range other {
		if !known[app.CDNPackage] {
			m.Applications = append(m.Applications, app)
			known[app.CDNPackage] = true
		}
	}
}

// Packages returns the declared cdn packages, sorted.
func (m *Manifest) Packages() []string {
	out := make([]string, 0, len(m.Applications))
	for _, app := range m.Applications {
		out = append(out, app.CDNPackage)
	}
	sort.Strings(out)
	return out
}
