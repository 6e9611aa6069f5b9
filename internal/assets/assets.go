// Package assets is the local asset library: agents, hooks, styles, MCP
// servers and workflows.
package assets

import (
	"errors"
	"fmt"
	"strings"
)

// Type classifies an asset.
type Type string

const (
	TypeAgent    Type = "Agent"
	TypeHook     Type = "Hook"
	TypeStyle    Type = "Style"
	TypeMCP      Type = "MCP"
	TypeWorkflow Type = "Workflow"
)

// Asset is one library entry.
type Asset struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Type        Type     `yaml:"type" json:"type"`
	Description string   `yaml:"description" json:"description"`
	Tags        []string `yaml:"tags" json:"tags"`
	Author      string   `yaml:"author" json:"author"`
	Updated     string   `yaml:"updated" json:"updated"`
}

// Filter is a library tab. FilterAll matches every type.
type Filter string

const FilterAll Filter = "All"

// Filters returns the library tabs in display order.
func Filters() []Filter {
	return []Filter{FilterAll, Filter(TypeWorkflow), Filter(TypeAgent), Filter(TypeHook), Filter(TypeStyle), Filter(TypeMCP)}
}

// Label returns the tab title.
func (f Filter) Label() string {
	switch f {
	case FilterAll:
		return "All Assets"
	case Filter(TypeMCP):
		return "MCP Servers"
	}
	return string(f) + "s"
}

// SearchPlaceholder mirrors the tab in the search prompt.
func (f Filter) SearchPlaceholder() string {
	switch f {
	case FilterAll:
		return "Search all assets..."
	case Filter(TypeMCP):
		return "Search MCP servers..."
	}
	return "Search " + strings.ToLower(string(f)) + "s..."
}

// Matches reports whether a passes the tab and the case-insensitive search
// over title and description.
func Matches(a Asset, tab Filter, query string) bool {
	if tab != FilterAll && tab != "" && Filter(a.Type) != tab {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Description), q)
}

// Library holds the asset list.
type Library struct {
	assets    []Asset
	installed map[string]bool
}

// NewLibrary copies assets into a library.
func NewLibrary(assets []Asset) *Library {
	return &Library{assets: append([]Asset(nil), assets...), installed: map[string]bool{}}
}

// All returns every asset.
func (l *Library) All() []Asset { return append([]Asset(nil), l.assets...) }

// Filter returns the assets visible under tab and query.
func (l *Library) Filter(tab Filter, query string) []Asset {
	var out []Asset
	for _, a := range l.assets {
		if Matches(a, tab, query) {
			out = append(out, a)
		}
	}
	return out
}

// Lookup finds an asset by id.
func (l *Library) Lookup(id string) (Asset, bool) {
	for _, a := range l.assets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}

// ErrUnknownAsset is returned for ids not in the library.
var ErrUnknownAsset = errors.New("assets: unknown asset")

// Action tells the caller what installing an asset does.
type Action int

const (
	// ActionOpenWorkflow sends the user to the workflow studio.
	ActionOpenWorkflow Action = iota
	// ActionInstall plays the install delay then confirms.
	ActionInstall
)

// InstallAction decides how an asset is installed.
func (l *Library) InstallAction(id string) (Asset, Action, error) {
	a, ok := l.Lookup(id)
	if !ok {
		return Asset{}, 0, fmt.Errorf("%w: %s", ErrUnknownAsset, id)
	}
	if a.Type == TypeWorkflow {
		return a, ActionOpenWorkflow, nil
	}
	return a, ActionInstall, nil
}

// MarkInstalled records a completed install and returns the confirmation.
func (l *Library) MarkInstalled(id string) (string, error) {
	a, ok := l.Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAsset, id)
	}
	l.installed[id] = true
	return InstallMessage(a), nil
}

// Installed reports whether id was installed this session.
func (l *Library) Installed(id string) bool { return l.installed[id] }

// InstallMessage is the confirmation shown after an install.
func InstallMessage(a Asset) string {
	return "Successfully installed " + a.Title
}
