package workflow

import (
	"fmt"
	"time"

	"github.com/kingrea/workbench/internal/plan"
	"github.com/kingrea/workbench/internal/sequencer"
)

// Result is the mock output recorded when a node finishes.
type Result struct {
	NodeID     string
	NodeLabel  string
	OutputType OutputType
	Output     string
}

// Studio holds the workflow definitions and the run in flight.
type Studio struct {
	defs     []Definition
	selected string
	order    []Node
	run      *plan.Plan
	results  map[string]Result
	running  bool
}

// NewStudio copies defs into a studio and selects the first.
func NewStudio(defs []Definition) *Studio {
	s := &Studio{results: map[string]Result{}}
	for _, def := range defs {
		s.defs = append(s.defs, def.Clone())
	}
	if len(s.defs) > 0 {
		_ = s.Select(s.defs[0].ID)
	}
	return s
}

// Definitions returns every definition.
func (s *Studio) Definitions() []Definition {
	out := make([]Definition, len(s.defs))
	for i, def := range s.defs {
		out[i] = def.Clone()
	}
	return out
}

// Select switches the studio to definition id and resets its run state.
// Callers cancel any sequence driving the studio first.
func (s *Studio) Select(id string) error {
	for _, def := range s.defs {
		if def.ID != id {
			continue
		}
		order, err := def.Order()
		if err != nil {
			return err
		}
		s.selected = id
		s.order = order
		s.run = plan.New(nodeSteps(order))
		s.results = map[string]Result{}
		s.running = false
		return nil
	}
	return fmt.Errorf("workflow: unknown definition %q", id)
}

// Selected returns the active definition.
func (s *Studio) Selected() (Definition, bool) {
	for _, def := range s.defs {
		if def.ID == s.selected {
			return def.Clone(), true
		}
	}
	return Definition{}, false
}

// Order returns the active definition's nodes in execution order.
func (s *Studio) Order() []Node {
	out := make([]Node, len(s.order))
	copy(out, s.order)
	return out
}

// Steps returns the node statuses as plan steps.
func (s *Studio) Steps() []plan.Step {
	if s.run == nil {
		return nil
	}
	return s.run.Snapshot()
}

// Result returns the recorded output of a finished node.
func (s *Studio) Result(id string) (Result, bool) {
	r, ok := s.results[id]
	return r, ok
}

// Running reports whether a run is in flight.
func (s *Studio) Running() bool { return s.running }

// Begin resets node statuses and returns the ordered nodes to play.
func (s *Studio) Begin() []Node {
	s.run = plan.New(nodeSteps(s.order))
	s.results = map[string]Result{}
	s.running = len(s.order) > 0
	return s.Order()
}

// Activate marks node i running and records results for every node before
// it.
func (s *Studio) Activate(i int) {
	if !s.running || i < 0 || i >= len(s.order) {
		return
	}
	for idx := 0; idx < i; idx++ {
		s.record(s.order[idx])
	}
	s.run.Activate(i)
}

// Finish completes the run.
func (s *Studio) Finish() {
	if !s.running {
		return
	}
	for _, node := range s.order {
		s.record(node)
	}
	s.run.Complete()
	s.running = false
}

// Abort stops the run, leaving statuses as they were.
func (s *Studio) Abort() { s.running = false }

func (s *Studio) record(node Node) {
	if _, ok := s.results[node.ID]; ok {
		return
	}
	outputType := node.OutputType
	if outputType == "" {
		outputType = OutputJSON
	}
	s.results[node.ID] = Result{NodeID: node.ID, NodeLabel: node.Label, OutputType: outputType, Output: node.Output}
}

// Run plays the active definition through seq.
func (s *Studio) Run(seq *sequencer.Sequencer[Node], tick time.Duration, onNode func(int, Node), onDone func()) {
	seq.Cancel()
	nodes := s.Begin()
	seq.Run(nodes, tick, func(idx int, node Node) {
		s.Activate(idx)
		if onNode != nil {
			onNode(idx, node)
		}
	}, func() {
		s.Finish()
		if onDone != nil {
			onDone()
		}
	})
}

func nodeSteps(nodes []Node) []plan.Step {
	steps := make([]plan.Step, len(nodes))
	for i, node := range nodes {
		steps[i] = plan.Step{ID: node.ID, Title: node.Label, Description: node.Description}
	}
	return steps
}
