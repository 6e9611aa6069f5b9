// Package plan holds the execution plan shown in the workbench task panel.
package plan

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a plan step.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ParseStatus validates a raw status string.
func ParseStatus(value string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(value))); s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return s, nil
	}
	return "", fmt.Errorf("plan: unknown step status %q", value)
}

// Step is one unit of a plan.
type Step struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Status      Status `json:"status" yaml:"status"`
}

// ErrInvalidOrder reports a plan whose statuses break sequential ordering.
var ErrInvalidOrder = errors.New("plan: steps out of sequential order")

// Plan is an ordered batch of steps. The zero value is an empty plan.
type Plan struct {
	steps []Step
}

// New clones steps and resets every status to pending.
func New(steps []Step) *Plan {
	p := &Plan{}
	p.Replace(steps)
	return p
}

// Replace discards the current steps in favour of a fresh pending batch.
func (p *Plan) Replace(steps []Step) {
	p.steps = make([]Step, len(steps))
	copy(p.steps, steps)
	for i := range p.steps {
		p.steps[i].Status = StatusPending
	}
}

// Len returns the number of steps.
func (p *Plan) Len() int { return len(p.steps) }

// Activate marks step i running, earlier steps completed and later steps
// pending. Out of range indexes are ignored.
func (p *Plan) Activate(i int) {
	if i < 0 || i >= len(p.steps) {
		return
	}
	for idx := range p.steps {
		switch {
		case idx < i:
			p.steps[idx].Status = StatusCompleted
		case idx == i:
			p.steps[idx].Status = StatusRunning
		default:
			p.steps[idx].Status = StatusPending
		}
	}
}

// Complete marks every step completed.
func (p *Plan) Complete() {
	for idx := range p.steps {
		p.steps[idx].Status = StatusCompleted
	}
}

// Fail marks step i failed and stops the plan there.
func (p *Plan) Fail(i int) {
	if i < 0 || i >= len(p.steps) {
		return
	}
	for idx := range p.steps {
		switch {
		case idx < i:
			p.steps[idx].Status = StatusCompleted
		case idx == i:
			p.steps[idx].Status = StatusFailed
		default:
			p.steps[idx].Status = StatusPending
		}
	}
}

// Running returns the index of the running step, or -1.
func (p *Plan) Running() int {
	for idx, step := range p.steps {
		if step.Status == StatusRunning {
			return idx
		}
	}
	return -1
}

// Done reports whether every step completed.
func (p *Plan) Done() bool {
	if len(p.steps) == 0 {
		return false
	}
	for _, step := range p.steps {
		if step.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// Progress returns completed and total counts.
func (p *Plan) Progress() (int, int) {
	done := 0
	for _, step := range p.steps {
		if step.Status == StatusCompleted {
			done++
		}
	}
	return done, len(p.steps)
}

// Snapshot returns a copy of the steps.
func (p *Plan) Snapshot() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Validate checks sequential ordering: a completed prefix, at most one
// running or failed step, then a pending suffix.
func (p *Plan) Validate() error {
	return Validate(p.steps)
}

// Validate checks sequential ordering of an arbitrary step slice.
func Validate(steps []Step) error {
	phase := 0 // 0 completed prefix, 1 after the active step
	for idx, step := range steps {
		switch step.Status {
		case StatusCompleted:
			if phase != 0 {
				return fmt.Errorf("%w: step %d (%s) completed after the active step", ErrInvalidOrder, idx, step.ID)
			}
		case StatusRunning, StatusFailed:
			if phase != 0 {
				return fmt.Errorf("%w: step %d (%s) is a second active step", ErrInvalidOrder, idx, step.ID)
			}
			phase = 1
		case StatusPending:
			phase = 1
		default:
			return fmt.Errorf("plan: step %d has unknown status %q", idx, step.Status)
		}
	}
	return nil
}
