package workbench

import (
	"sync"
	"time"

	"github.com/kingrea/workbench/internal/clock"
	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/plan"
	"github.com/kingrea/workbench/internal/scope"
	"github.com/kingrea/workbench/internal/sequencer"
)

// Timings are the delays of the scripted launch.
type Timings struct {
	CloneTick   time.Duration
	ReplyDelay  time.Duration
	AnalyzeWait time.Duration
	PlanDelay   time.Duration
	PlanTick    time.Duration
}

// DefaultTimings match the pacing of the interactive workbench.
func DefaultTimings() Timings {
	return Timings{
		CloneTick:   300 * time.Millisecond,
		ReplyDelay:  500 * time.Millisecond,
		AnalyzeWait: 1500 * time.Millisecond,
		PlanDelay:   1500 * time.Millisecond,
		PlanTick:    2 * time.Second,
	}
}

// Hooks observe a launch. Any hook may be nil.
type Hooks struct {
	OnTerminal func(line string)
	OnScope    func(sc scope.Scope)
	OnMessage  func(msg Message)
	OnPlan     func(steps []plan.Step)
	OnDone     func()
}

// Runner plays a launch on a clock outside the TUI. It owns one sequencer
// per animated panel and the one-shot timers between them; Cancel stops all
// of them.
type Runner struct {
	session *Session
	clock   clock.Clock
	timings Timings
	clone   *sequencer.Sequencer[string]
	steps   *sequencer.Sequencer[plan.Step]

	mu     sync.Mutex
	timers []clock.Timer
	gen    uint64

	// serial orders the delayed callbacks, which run on separate timers.
	serial sync.Mutex
}

// NewRunner binds a session to clk.
func NewRunner(session *Session, clk clock.Clock, timings Timings) *Runner {
	if clk == nil {
		clk = clock.Real()
	}
	return &Runner{
		session: session,
		clock:   clk,
		timings: timings,
		clone:   sequencer.New[string](clk),
		steps:   sequencer.New[plan.Step](clk),
	}
}

// Launch cancels any launch in flight and plays l: clone log, scope mount,
// intent, reply, plan generation and plan advancement.
func (r *Runner) Launch(l onboarding.Launch, hooks Hooks) {
	r.Cancel()
	gen := r.generation()
	lines := r.session.BeginLaunch(l)
	r.clone.Run(lines, r.timings.CloneTick, func(_ int, line string) {
		r.session.AppendTerminal(line)
		call1(hooks.OnTerminal, line)
	}, func() {
		sc := r.session.MountLaunchScope()
		callScope(hooks.OnScope, sc)
		if l.Intent == "" {
			r.generatePlan(gen, hooks)
			return
		}
		r.after(gen, r.timings.ReplyDelay, func() {
			if msg, ok := r.session.PostIntent(); ok {
				callMsg(hooks.OnMessage, msg)
			}
		})
		r.after(gen, r.timings.AnalyzeWait, func() {
			if msg, ok := r.session.PostAnalysis(); ok {
				callMsg(hooks.OnMessage, msg)
			}
			r.generatePlan(gen, hooks)
		})
	})
}

func (r *Runner) generatePlan(gen uint64, hooks Hooks) {
	r.session.RequestPlan()
	r.after(gen, r.timings.PlanDelay, func() {
		steps := r.session.GeneratePlan()
		model := r.session.PlanModel()
		if hooks.OnPlan != nil {
			hooks.OnPlan(steps)
		}
		r.steps.Run(steps, r.timings.PlanTick, func(idx int, _ plan.Step) {
			model.Activate(idx)
			if hooks.OnPlan != nil {
				hooks.OnPlan(model.Snapshot())
			}
		}, func() {
			model.Complete()
			if hooks.OnPlan != nil {
				hooks.OnPlan(model.Snapshot())
			}
			if hooks.OnDone != nil {
				hooks.OnDone()
			}
		})
	})
}

// Cancel stops the clone log, the plan sequence and every pending delay.
func (r *Runner) Cancel() {
	r.clone.Cancel()
	r.steps.Cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	for _, t := range r.timers {
		t.Stop()
	}
	r.timers = nil
}

func (r *Runner) generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

func (r *Runner) after(gen uint64, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return
	}
	r.timers = append(r.timers, r.clock.AfterFunc(d, func() {
		r.serial.Lock()
		defer r.serial.Unlock()
		if r.generation() != gen {
			return
		}
		fn()
	}))
}

func call1(fn func(string), v string) {
	if fn != nil {
		fn(v)
	}
}

func callScope(fn func(scope.Scope), v scope.Scope) {
	if fn != nil {
		fn(v)
	}
}

func callMsg(fn func(Message), v Message) {
	if fn != nil {
		fn(v)
	}
}
