// Package scope models the active project/iteration and the reference
// resources attached to it. A Scope is a value: membership changes produce a
// new Scope, never an edit of an existing one.
package scope

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the resource kinds a scope can reference.
type Kind string

const (
	KindDoc    Kind = "doc"
	KindDesign Kind = "design"
	KindAPI    Kind = "api"
	KindRule   Kind = "rule"
	KindTech   Kind = "tech"
	KindQA     Kind = "qa"
)

var kinds = []Kind{KindDoc, KindDesign, KindAPI, KindRule, KindTech, KindQA}

// Kinds returns every supported kind in display order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind validates a raw kind string.
func ParseKind(value string) (Kind, error) {
	candidate := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, k := range kinds {
		if k == candidate {
			return k, nil
		}
	}
	return "", fmt.Errorf("scope: unknown resource kind %q", value)
}

// Label returns a short human label for the kind.
func (k Kind) Label() string {
	switch k {
	case KindDoc:
		return "PRD"
	case KindDesign:
		return "Design"
	case KindAPI:
		return "API"
	case KindRule:
		return "Rule"
	case KindTech:
		return "Tech Spec"
	case KindQA:
		return "Test Cases"
	default:
		return string(k)
	}
}

// UnmarshalText lets YAML and JSON decoders reject unknown kinds.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Item is one reference resource inside a scope.
type Item struct {
	Kind  Kind   `json:"type" yaml:"type"`
	Title string `json:"title" yaml:"title"`
}

// Scope is the active project/iteration plus its attached resources.
type Scope struct {
	id      string
	name    string
	project string
	items   []Item
}

// New creates a scope stamped with the current time.
func New(project, name string, items []Item) Scope {
	return NewAt(time.Now(), project, name, items)
}

// NewAt creates a scope whose identifier is derived from now.
func NewAt(now time.Time, project, name string, items []Item) Scope {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return Scope{
		id:      fmt.Sprintf("scope-%d-%s", now.UnixMilli(), suffix),
		name:    strings.TrimSpace(name),
		project: strings.TrimSpace(project),
		items:   cloneItems(items),
	}
}

// Restore rebuilds a scope with a known identifier, e.g. one received over
// the event bridge.
func Restore(id, project, name string, items []Item) Scope {
	return Scope{
		id:      strings.TrimSpace(id),
		name:    strings.TrimSpace(name),
		project: strings.TrimSpace(project),
		items:   cloneItems(items),
	}
}

// ID returns the scope identifier, "scope-<unix ms>-<suffix>" for scopes
// built by New.
func (s Scope) ID() string { return s.id }

// Name returns the iteration name.
func (s Scope) Name() string { return s.name }

// Project returns the project the iteration belongs to.
func (s Scope) Project() string { return s.project }

// IsZero reports whether s was never created.
func (s Scope) IsZero() bool { return s.id == "" }

// Items returns a copy of the item snapshot.
func (s Scope) Items() []Item { return cloneItems(s.items) }

// Len returns the number of items.
func (s Scope) Len() int { return len(s.items) }

// Count returns how many items have kind k.
func (s Scope) Count(k Kind) int {
	n := 0
	for _, item := range s.items {
		if item.Kind == k {
			n++
		}
	}
	return n
}

// Equal compares every field including item order.
func (s Scope) Equal(other Scope) bool {
	if s.id != other.id || s.name != other.name || s.project != other.project {
		return false
	}
	if len(s.items) != len(other.items) {
		return false
	}
	for i := range s.items {
		if s.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

// Label renders "project / name".
func (s Scope) Label() string {
	switch {
	case s.project == "" && s.name == "":
		return "no active scope"
	case s.project == "":
		return s.name
	case s.name == "":
		return s.project
	}
	return s.project + " / " + s.name
}

// View is the serializable form of a scope.
type View struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Project string `json:"project" yaml:"project"`
	Items   []Item `json:"items" yaml:"items"`
}

// View converts s to its serializable form.
func (s Scope) View() View {
	items := cloneItems(s.items)
	if items == nil {
		items = []Item{}
	}
	return View{ID: s.id, Name: s.name, Project: s.project, Items: items}
}

func cloneItems(items []Item) []Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
