// Package catalog is the context manager: reference resources grouped by
// project and iteration, scope packaging, and the import form.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/workbench/internal/scope"
)

// Status is the sync state of a resource.
type Status string

const (
	StatusSynced  Status = "synced"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
	StatusActive  Status = "active"
)

// GeneralIteration collects resources that name no iteration.
const GeneralIteration = "General"

// Resource is one reference document attached to a project iteration.
type Resource struct {
	ID        string     `yaml:"id" json:"id"`
	Title     string     `yaml:"title" json:"title"`
	Source    string     `yaml:"source" json:"source"`
	Kind      scope.Kind `yaml:"type" json:"type"`
	Updated   string     `yaml:"updated" json:"updated"`
	Status    Status     `yaml:"status" json:"status"`
	Project   string     `yaml:"project" json:"project"`
	Iteration string     `yaml:"iteration,omitempty" json:"iteration,omitempty"`
	RuleLevel string     `yaml:"rule_level,omitempty" json:"rule_level,omitempty"`
	Content   string     `yaml:"content,omitempty" json:"content,omitempty"`
	BaseURL   string     `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// IterationName returns the resource's iteration, defaulting to General.
func (r Resource) IterationName() string {
	if strings.TrimSpace(r.Iteration) == "" {
		return GeneralIteration
	}
	return r.Iteration
}

// IterationGroup lists the resources of one iteration.
type IterationGroup struct {
	Name      string
	Resources []Resource
}

// ProjectGroup lists a project's iterations in first-seen order.
type ProjectGroup struct {
	Project    string
	Iterations []IterationGroup
}

// MissingFieldsMessage is shown when the import form is incomplete.
const MissingFieldsMessage = "Please complete all required fields"

// ErrMissingFields rejects an import without a name or url.
var ErrMissingFields = errors.New("catalog: name and url are required")

// Catalog holds the resource list for the current session.
type Catalog struct {
	resources []Resource
	now       func() time.Time
	seq       int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock overrides the time source used for ids.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

// New copies resources into a fresh catalog.
func New(resources []Resource, opts ...Option) *Catalog {
	c := &Catalog{resources: cloneResources(resources), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resources returns every resource in insertion order.
func (c *Catalog) Resources() []Resource {
	return cloneResources(c.resources)
}

// Lookup finds a resource by id.
func (c *Catalog) Lookup(id string) (Resource, bool) {
	for _, r := range c.resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

// Group arranges resources by project then iteration, both in first-seen
// order.
func (c *Catalog) Group() []ProjectGroup {
	var groups []ProjectGroup
	projectIdx := map[string]int{}
	iterIdx := map[string]map[string]int{}
	for _, r := range c.resources {
		pi, ok := projectIdx[r.Project]
		if !ok {
			pi = len(groups)
			projectIdx[r.Project] = pi
			iterIdx[r.Project] = map[string]int{}
			groups = append(groups, ProjectGroup{Project: r.Project})
		}
		name := r.IterationName()
		ii, ok := iterIdx[r.Project][name]
		if !ok {
			ii = len(groups[pi].Iterations)
			iterIdx[r.Project][name] = ii
			groups[pi].Iterations = append(groups[pi].Iterations, IterationGroup{Name: name})
		}
		groups[pi].Iterations[ii].Resources = append(groups[pi].Iterations[ii].Resources, r)
	}
	return groups
}

// IterationResources returns the resources of one project iteration.
func (c *Catalog) IterationResources(project, iteration string) []Resource {
	var out []Resource
	for _, r := range c.resources {
		if r.Project == project && r.IterationName() == iteration {
			out = append(out, r)
		}
	}
	return out
}

// BuildScope snapshots an iteration's resources into a new scope. An
// iteration without resources yields a scope with no items.
func (c *Catalog) BuildScope(project, iteration string) scope.Scope {
	resources := c.IterationResources(project, iteration)
	items := make([]scope.Item, 0, len(resources))
	for _, r := range resources {
		items = append(items, scope.Item{Kind: r.Kind, Title: r.Title})
	}
	return scope.NewAt(c.now(), project, iteration, items)
}

// ImportForm is the data entered in the import dialog.
type ImportForm struct {
	Kind      scope.Kind
	Name      string
	URL       string
	Project   string
	Iteration string
}

// Validate reports ErrMissingFields when name or url is blank.
func (f ImportForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.URL) == "" {
		return ErrMissingFields
	}
	if _, err := scope.ParseKind(string(f.Kind)); err != nil {
		return err
	}
	return nil
}

// SourceFor maps a resource kind to the system it is imported from.
func SourceFor(k scope.Kind) string {
	switch k {
	case scope.KindDoc:
		return "Feishu"
	case scope.KindDesign:
		return "MasterGo"
	case scope.KindTech:
		return "Engineering"
	case scope.KindQA:
		return "QA"
	case scope.KindRule:
		return "System"
	default:
		return "Swagger"
	}
}

// Import validates the form and appends the new resource.
func (c *Catalog) Import(form ImportForm) (Resource, error) {
	if err := form.Validate(); err != nil {
		return Resource{}, err
	}
	c.seq++
	r := Resource{
		ID:        fmt.Sprintf("new-%d-%d", c.now().UnixMilli(), c.seq),
		Title:     strings.TrimSpace(form.Name),
		Source:    SourceFor(form.Kind),
		Kind:      form.Kind,
		Updated:   "Just now",
		Status:    StatusSynced,
		Project:   strings.TrimSpace(form.Project),
		Iteration: strings.TrimSpace(form.Iteration),
	}
	url := strings.TrimSpace(form.URL)
	switch form.Kind {
	case scope.KindDoc:
		r.Content = "Generated content from " + url
	case scope.KindAPI:
		r.BaseURL = url
	}
	c.resources = append(c.resources, r)
	return r, nil
}

// ImportMessage is the confirmation shown after a successful import. It
// names the iteration as entered, even when the resource is listed under
// General.
func ImportMessage(r Resource) string {
	return fmt.Sprintf("Successfully connected %s to %s", r.Title, r.Iteration)
}

// PackagingMessage is shown while a scope is being applied.
func PackagingMessage(iteration string) string {
	return fmt.Sprintf("Packaging context for %s...", iteration)
}

func cloneResources(in []Resource) []Resource {
	if len(in) == 0 {
		return nil
	}
	out := make([]Resource, len(in))
	copy(out, in)
	return out
}
