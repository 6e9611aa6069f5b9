// Package testlab replays recorded end-to-end scenarios step by step.
package testlab

import (
	"errors"
	"fmt"
	"time"

	"github.com/kingrea/workbench/internal/sequencer"
)

// Status applies to scenarios and steps.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
)

// PhaseType is the Gherkin keyword of a phase.
type PhaseType string

const (
	Given PhaseType = "GIVEN"
	When  PhaseType = "WHEN"
	Then  PhaseType = "THEN"
)

// Step is one recorded browser action.
type Step struct {
	ID        string `yaml:"id" json:"id"`
	Action    string `yaml:"action" json:"action"`
	Selector  string `yaml:"selector,omitempty" json:"selector,omitempty"`
	Value     string `yaml:"value,omitempty" json:"value,omitempty"`
	Duration  string `yaml:"duration" json:"duration"`
	Status    Status `yaml:"status" json:"status"`
	Timestamp string `yaml:"timestamp" json:"timestamp"`
	Error     string `yaml:"error,omitempty" json:"error,omitempty"`
	Line      int    `yaml:"line,omitempty" json:"line,omitempty"`
}

// Describe renders the step as "action selector value".
func (s Step) Describe() string {
	out := s.Action
	if s.Selector != "" {
		out += " " + s.Selector
	}
	if s.Value != "" {
		out += fmt.Sprintf(" %q", s.Value)
	}
	return out
}

// Phase groups steps under a Gherkin keyword.
type Phase struct {
	ID          string    `yaml:"id" json:"id"`
	Type        PhaseType `yaml:"type" json:"type"`
	Description string    `yaml:"description" json:"description"`
	Steps       []Step    `yaml:"steps" json:"steps"`
}

// Scenario is one recorded test.
type Scenario struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Tags        []string `yaml:"tags" json:"tags"`
	PRDRef      string   `yaml:"prd_ref" json:"prd_ref"`
	Status      Status   `yaml:"status" json:"status"`
	Phases      []Phase  `yaml:"phases" json:"phases"`
}

// Steps flattens the scenario's phases.
func (s Scenario) Steps() []Step {
	var out []Step
	for _, ph := range s.Phases {
		out = append(out, ph.Steps...)
	}
	return out
}

// Feature groups scenarios.
type Feature struct {
	ID        string     `yaml:"id" json:"id"`
	Title     string     `yaml:"title" json:"title"`
	Scenarios []Scenario `yaml:"scenarios" json:"scenarios"`
}

// ErrUnknownScenario is returned for ids not present in the lab.
var ErrUnknownScenario = errors.New("testlab: unknown scenario")

// Lab holds the features and the state of the replay in flight.
type Lab struct {
	features []Feature
	running  string
	revealed []Status
	steps    []Step
}

// New copies features into a lab.
func New(features []Feature) *Lab {
	l := &Lab{features: make([]Feature, len(features))}
	for i, f := range features {
		f.Scenarios = append([]Scenario(nil), f.Scenarios...)
		l.features[i] = f
	}
	return l
}

// Features returns the feature tree.
func (l *Lab) Features() []Feature {
	out := make([]Feature, len(l.features))
	copy(out, l.features)
	return out
}

// Scenario finds a scenario by id.
func (l *Lab) Scenario(id string) (Scenario, bool) {
	for _, f := range l.features {
		for _, sc := range f.Scenarios {
			if sc.ID == id {
				return sc, true
			}
		}
	}
	return Scenario{}, false
}

// Running returns the id of the scenario being replayed, or "".
func (l *Lab) Running() string { return l.running }

// Revealed returns the statuses shown so far, one per replayed step.
func (l *Lab) Revealed() []Status {
	return append([]Status(nil), l.revealed...)
}

// Begin marks scenario id running and returns the steps to replay. A replay
// already in flight is abandoned and its scenario returns to its recorded
// status.
func (l *Lab) Begin(id string) ([]Step, error) {
	sc, ok := l.Scenario(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, id)
	}
	l.Abort()
	l.running = id
	l.steps = sc.Steps()
	l.revealed = nil
	l.setStatus(id, StatusRunning)
	return append([]Step(nil), l.steps...), nil
}

// Reveal marks step i running and every earlier step with its recorded
// status.
func (l *Lab) Reveal(i int) {
	if l.running == "" || i < 0 || i >= len(l.steps) {
		return
	}
	l.revealed = make([]Status, i+1)
	for idx := 0; idx < i; idx++ {
		l.revealed[idx] = l.steps[idx].Status
	}
	l.revealed[i] = StatusRunning
}

// Finish reveals every step and settles the scenario status: failed when
// any step failed, otherwise passed.
func (l *Lab) Finish() Status {
	if l.running == "" {
		return StatusIdle
	}
	final := StatusPassed
	l.revealed = make([]Status, len(l.steps))
	for idx, step := range l.steps {
		l.revealed[idx] = step.Status
		if step.Status == StatusFailed {
			final = StatusFailed
		}
	}
	l.setStatus(l.running, final)
	l.running = ""
	return final
}

// Abort stops the replay and restores the scenario's recorded status.
func (l *Lab) Abort() {
	if l.running == "" {
		return
	}
	final := StatusPassed
	for _, step := range l.steps {
		if step.Status == StatusFailed {
			final = StatusFailed
		}
	}
	l.setStatus(l.running, final)
	l.running = ""
	l.revealed = nil
}

func (l *Lab) setStatus(id string, status Status) {
	for fi := range l.features {
		for si := range l.features[fi].Scenarios {
			if l.features[fi].Scenarios[si].ID == id {
				l.features[fi].Scenarios[si].Status = status
			}
		}
	}
}

// Run replays scenario id through seq. onDone receives the final status.
func (l *Lab) Run(seq *sequencer.Sequencer[Step], id string, tick time.Duration, onStep func(int, Step), onDone func(Status)) error {
	seq.Cancel()
	steps, err := l.Begin(id)
	if err != nil {
		return err
	}
	seq.Run(steps, tick, func(idx int, step Step) {
		l.Reveal(idx)
		if onStep != nil {
			onStep(idx, step)
		}
	}, func() {
		final := l.Finish()
		if onDone != nil {
			onDone(final)
		}
	})
	return nil
}
