package onboarding

import (
	"errors"
	"fmt"
	"strings"
)

// Stage is a wizard page.
type Stage int

const (
	StageModel Stage = iota + 1
	StageProject
	StageIntent
)

func (s Stage) Label() string {
	switch s {
	case StageModel:
		return "Model"
	case StageProject:
		return "Context"
	case StageIntent:
		return "Intent"
	}
	return "Unknown"
}

// ConnectionStatus is the result of the simulated connection check.
type ConnectionStatus string

const (
	ConnectionIdle     ConnectionStatus = "idle"
	ConnectionTesting  ConnectionStatus = "testing"
	ConnectionVerified ConnectionStatus = "success"
	ConnectionFailed   ConnectionStatus = "error"
)

// ErrMissingAPIKey blocks the connection test for providers that need a key.
var ErrMissingAPIKey = errors.New("onboarding: api key is required")

// DefaultRepoURL and DefaultIteration prefill a fresh wizard.
const (
	DefaultRepoURL   = "https://github.com/claude-templates/vue-admin-starter.git"
	DefaultIteration = "MVP v1.0"
)

// Wizard accumulates onboarding answers. The TUI binds its fields to huh
// form inputs.
type Wizard struct {
	Stage       Stage
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	ProjectType ProjectType
	RepoURL     string
	TemplateID  string
	Iteration   string
	Intent      string
	Connection  ConnectionStatus
}

// NewWizard returns a wizard prefilled with the first preset and the demo
// repository.
func NewWizard() *Wizard {
	w := &Wizard{
		Stage:       StageModel,
		ProjectType: ProjectGit,
		RepoURL:     DefaultRepoURL,
		Iteration:   DefaultIteration,
	}
	_ = w.SelectProvider(presets[0].ID)
	return w
}

// SelectProvider switches presets, resetting base URL, model and API key.
func (w *Wizard) SelectProvider(id string) error {
	p, ok := LookupProvider(id)
	if !ok {
		return fmt.Errorf("onboarding: unknown provider %q", id)
	}
	w.Provider = p.ID
	w.BaseURL = p.BaseURL
	w.Model = p.DefaultModel()
	w.APIKey = ""
	w.Connection = ConnectionIdle
	return nil
}

// ActiveProvider returns the selected preset, falling back to the first.
func (w *Wizard) ActiveProvider() Provider {
	if p, ok := LookupProvider(w.Provider); ok {
		return p
	}
	return Presets()[0]
}

// BeginConnectionTest validates credentials and marks the check in flight.
// The TUI completes it after a short delay with FinishConnectionTest.
func (w *Wizard) BeginConnectionTest() error {
	if w.ActiveProvider().RequiresKey && strings.TrimSpace(w.APIKey) == "" {
		return ErrMissingAPIKey
	}
	w.Connection = ConnectionTesting
	return nil
}

// FinishConnectionTest records a simulated success.
func (w *Wizard) FinishConnectionTest() {
	if w.Connection == ConnectionTesting {
		w.Connection = ConnectionVerified
	}
}

// Next moves forward one stage.
func (w *Wizard) Next() {
	if w.Stage < StageIntent {
		w.Stage++
	}
}

// Back moves back one stage.
func (w *Wizard) Back() {
	if w.Stage > StageModel {
		w.Stage--
	}
}

// Launch builds and validates the startup payload.
func (w *Wizard) Launch() (Launch, error) {
	var src Source
	switch w.ProjectType {
	case ProjectTemplate:
		src = TemplateSource{TemplateID: strings.TrimSpace(w.TemplateID)}
	case ProjectGit:
		src = GitSource{RepoURL: strings.TrimSpace(w.RepoURL)}
	}
	l := Launch{
		Provider:      w.Provider,
		Source:        src,
		IterationName: strings.TrimSpace(w.Iteration),
		Intent:        strings.TrimSpace(w.Intent),
	}
	if err := l.Validate(); err != nil {
		return Launch{}, err
	}
	return l, nil
}
