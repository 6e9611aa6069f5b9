// Package seed holds the fixture data every view starts from. A default seed
// is embedded in the binary; a YAML file may override any top-level section.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/workbench/internal/assets"
	"github.com/kingrea/workbench/internal/catalog"
	"github.com/kingrea/workbench/internal/deploy"
	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/plan"
	"github.com/kingrea/workbench/internal/scope"
	"github.com/kingrea/workbench/internal/testlab"
	"github.com/kingrea/workbench/internal/workbench"
	"github.com/kingrea/workbench/internal/workflow"
)

//go:embed default.yaml
var defaultYAML []byte

// Seed is the full fixture set.
type Seed struct {
	Resources   []catalog.Resource    `yaml:"resources" json:"resources"`
	Deployments []deploy.Deployment   `yaml:"deployments" json:"deployments"`
	BuildLog    []string              `yaml:"build_log" json:"build_log"`
	Features    []testlab.Feature     `yaml:"features" json:"features"`
	Assets      []assets.Asset        `yaml:"assets" json:"assets"`
	Workflows   []workflow.Definition `yaml:"workflows" json:"workflows"`
	Providers   []onboarding.Provider `yaml:"providers" json:"providers"`
	Workbench   WorkbenchSeed         `yaml:"workbench" json:"workbench"`
	Dashboard   Dashboard             `yaml:"dashboard" json:"dashboard"`
}

// WorkbenchSeed is the initial chat session.
type WorkbenchSeed struct {
	Scope        scope.View          `yaml:"scope" json:"scope"`
	Messages     []workbench.Message `yaml:"messages" json:"messages"`
	Plan         []plan.Step         `yaml:"plan" json:"plan"`
	PlanTemplate []plan.Step         `yaml:"plan_template" json:"plan_template"`
}

// Fixture converts the seed into a workbench session fixture.
func (w WorkbenchSeed) Fixture() workbench.Fixture {
	var sc scope.Scope
	if w.Scope.ID != "" {
		sc = scope.Restore(w.Scope.ID, w.Scope.Project, w.Scope.Name, w.Scope.Items)
	}
	return workbench.Fixture{
		Scope:        sc,
		Messages:     append([]workbench.Message(nil), w.Messages...),
		Plan:         append([]plan.Step(nil), w.Plan...),
		PlanTemplate: append([]plan.Step(nil), w.PlanTemplate...),
	}
}

// Dashboard is the mission control overview.
type Dashboard struct {
	Context  DashboardContext `yaml:"context" json:"context"`
	Git      GitStatus        `yaml:"git" json:"git"`
	Activity []Activity       `yaml:"activity" json:"activity"`
	Health   Health           `yaml:"health" json:"health"`
}

type DashboardContext struct {
	Project   string `yaml:"project" json:"project"`
	Iteration string `yaml:"iteration" json:"iteration"`
	Doc       string `yaml:"doc" json:"doc"`
	Rules     int    `yaml:"rules" json:"rules"`
}

type GitStatus struct {
	Branch  string    `yaml:"branch" json:"branch"`
	Added   int       `yaml:"added" json:"added"`
	Removed int       `yaml:"removed" json:"removed"`
	Files   []GitFile `yaml:"files" json:"files"`
}

type GitFile struct {
	Name   string `yaml:"name" json:"name"`
	Status string `yaml:"status" json:"status"`
}

// Activity is one entry of the agent activity feed. Progress applies to
// running entries; Time to finished ones.
type Activity struct {
	Agent    string `yaml:"agent" json:"agent"`
	Action   string `yaml:"action" json:"action"`
	Status   string `yaml:"status" json:"status"`
	Progress int    `yaml:"progress,omitempty" json:"progress,omitempty"`
	Time     string `yaml:"time,omitempty" json:"time,omitempty"`
}

type Health struct {
	TestsPassed   int    `yaml:"tests_passed" json:"tests_passed"`
	TestsFailed   int    `yaml:"tests_failed" json:"tests_failed"`
	TestsTotal    int    `yaml:"tests_total" json:"tests_total"`
	DeployEnv     string `yaml:"deploy_env" json:"deploy_env"`
	DeployVersion string `yaml:"deploy_version" json:"deploy_version"`
	DeployStatus  string `yaml:"deploy_status" json:"deploy_status"`
	Uptime        string `yaml:"uptime" json:"uptime"`
	DBSize        string `yaml:"db_size" json:"db_size"`
	DBTables      int    `yaml:"db_tables" json:"db_tables"`
}

// ErrDuplicateID is returned by Validate when two records of one section
// share an identifier.
var ErrDuplicateID = errors.New("seed: duplicate id")

// Default decodes the embedded seed.
func Default() (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(defaultYAML, &s); err != nil {
		return Seed{}, fmt.Errorf("seed: parse embedded default: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Seed{}, fmt.Errorf("seed: embedded default: %w", err)
	}
	return s, nil
}

// MustDefault is Default for callers that cannot recover from a broken
// embedded seed.
func MustDefault() Seed {
	s, err := Default()
	if err != nil {
		panic(err)
	}
	return s
}

// Parse decodes data on top of the default seed. Sections absent from data
// keep their default values; present sections replace them wholesale.
func Parse(data []byte) (Seed, error) {
	s, err := Default()
	if err != nil {
		return Seed{}, err
	}
	var override map[string]yaml.Node
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Seed{}, fmt.Errorf("seed: parse: %w", err)
	}
	for key, node := range override {
		if err := s.decodeSection(key, &node); err != nil {
			return Seed{}, err
		}
	}
	if err := s.Validate(); err != nil {
		return Seed{}, err
	}
	return s, nil
}

// Load reads an override file. An empty path yields the default seed.
func Load(path string) (Seed, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return Seed{}, fmt.Errorf("%w (%s)", err, path)
	}
	return s, nil
}

func (s *Seed) decodeSection(key string, node *yaml.Node) error {
	var target any
	switch key {
	case "resources":
		s.Resources = nil
		target = &s.Resources
	case "deployments":
		s.Deployments = nil
		target = &s.Deployments
	case "build_log":
		s.BuildLog = nil
		target = &s.BuildLog
	case "features":
		s.Features = nil
		target = &s.Features
	case "assets":
		s.Assets = nil
		target = &s.Assets
	case "workflows":
		s.Workflows = nil
		target = &s.Workflows
	case "providers":
		s.Providers = nil
		target = &s.Providers
	case "workbench":
		s.Workbench = WorkbenchSeed{}
		target = &s.Workbench
	case "dashboard":
		s.Dashboard = Dashboard{}
		target = &s.Dashboard
	default:
		return fmt.Errorf("seed: unknown section %q", key)
	}
	if err := node.Decode(target); err != nil {
		return fmt.Errorf("seed: decode %s: %w", key, err)
	}
	return nil
}

// Validate checks identifier uniqueness per section and normalizes every
// workflow definition in place.
func (s *Seed) Validate() error {
	checks := []struct {
		section string
		ids     []string
	}{
		{"resources", collect(s.Resources, func(r catalog.Resource) string { return r.ID })},
		{"deployments", collect(s.Deployments, func(d deploy.Deployment) string { return d.ID })},
		{"features", collect(s.Features, func(f testlab.Feature) string { return f.ID })},
		{"assets", collect(s.Assets, func(a assets.Asset) string { return a.ID })},
		{"workflows", collect(s.Workflows, func(d workflow.Definition) string { return d.ID })},
		{"providers", collect(s.Providers, func(p onboarding.Provider) string { return p.ID })},
		{"workbench.plan", collect(s.Workbench.Plan, func(p plan.Step) string { return p.ID })},
		{"workbench.plan_template", collect(s.Workbench.PlanTemplate, func(p plan.Step) string { return p.ID })},
	}
	for _, c := range checks {
		if err := unique(c.section, c.ids); err != nil {
			return err
		}
	}
	for _, f := range s.Features {
		if err := unique("features."+f.ID, collect(f.Scenarios, func(sc testlab.Scenario) string { return sc.ID })); err != nil {
			return err
		}
	}
	if err := plan.Validate(s.Workbench.Plan); err != nil {
		return fmt.Errorf("seed: workbench.plan: %w", err)
	}
	for i, def := range s.Workflows {
		normalized, err := def.Normalized()
		if err != nil {
			return fmt.Errorf("seed: workflow %s: %w", def.ID, err)
		}
		s.Workflows[i] = normalized
	}
	return nil
}

func collect[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, id(item))
	}
	return out
}

func unique(section string, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("seed: %s: record without id", section)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w %q in %s", ErrDuplicateID, id, section)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Clone returns a deep enough copy that slices of the result can be edited
// without touching s.
func (s Seed) Clone() Seed {
	out := s
	out.Resources = append([]catalog.Resource(nil), s.Resources...)
	out.Deployments = append([]deploy.Deployment(nil), s.Deployments...)
	out.BuildLog = append([]string(nil), s.BuildLog...)
	out.Features = append([]testlab.Feature(nil), s.Features...)
	out.Assets = append([]assets.Asset(nil), s.Assets...)
	out.Workflows = make([]workflow.Definition, len(s.Workflows))
	for i, def := range s.Workflows {
		out.Workflows[i] = def.Clone()
	}
	out.Providers = append([]onboarding.Provider(nil), s.Providers...)
	out.Workbench.Messages = append([]workbench.Message(nil), s.Workbench.Messages...)
	out.Workbench.Plan = append([]plan.Step(nil), s.Workbench.Plan...)
	out.Workbench.PlanTemplate = append([]plan.Step(nil), s.Workbench.PlanTemplate...)
	out.Workbench.Scope.Items = append([]scope.Item(nil), s.Workbench.Scope.Items...)
	out.Dashboard.Activity = append([]Activity(nil), s.Dashboard.Activity...)
	out.Dashboard.Git.Files = append([]GitFile(nil), s.Dashboard.Git.Files...)
	return out
}

// Marshal renders s as YAML.
func (s Seed) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("seed: marshal: %w", err)
	}
	return data, nil
}
