package tui

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/workbench/internal/sequencer"
)

// seqID names one animated sequence. Each view owns its ids.
type seqID string

const (
	seqClone      seqID = "workbench.clone"
	seqReply      seqID = "workbench.reply"
	seqAnalyze    seqID = "workbench.analyze"
	seqPlanDelay  seqID = "workbench.plan-delay"
	seqPlan       seqID = "workbench.plan"
	seqChatReply  seqID = "workbench.chat-reply"
	seqDemo       seqID = "workbench.demo"
	seqDeploy     seqID = "deploy.log"
	seqTest       seqID = "test.replay"
	seqWorkflow   seqID = "workflow.run"
	seqApply      seqID = "context.apply"
	seqImport     seqID = "context.import"
	seqInstall    seqID = "assets.install"
	seqConnection seqID = "onboarding.connection"
)

// runs numbers every ticker run in the process. Views rebuilt after a seed
// reload get fresh steppers, so the stepper tag alone cannot tell their runs
// apart from the ones they replaced.
var runs atomic.Uint64

// tickMsg is delivered by tea.Tick for sequence id. A tick whose run or tag
// no longer matches the sequence is dropped.
type tickMsg struct {
	id  seqID
	run uint64
	tag uint64
}

// ticker drives a sequencer.Stepper from tea.Tick commands so every step
// runs inside the update loop.
type ticker[T any] struct {
	id       seqID
	interval time.Duration
	run      uint64
	stepper  sequencer.Stepper[T]
}

func newTicker[T any](id seqID, interval time.Duration) *ticker[T] {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &ticker[T]{id: id, interval: interval}
}

// start replaces any run in flight. The returned event has step 0 started
// unless steps is empty, in which case it is already Done.
func (t *ticker[T]) start(steps []T) (sequencer.Event, tea.Cmd) {
	evt := t.stepper.Start(steps)
	t.run = runs.Add(1)
	if evt.Done {
		return evt, nil
	}
	return evt, t.schedule(evt.Tag)
}

// advance consumes msg if it belongs to the active run.
func (t *ticker[T]) advance(msg tickMsg) (sequencer.Event, tea.Cmd, bool) {
	if msg.id != t.id || msg.run != t.run {
		return sequencer.Event{}, nil, false
	}
	evt, ok := t.stepper.Advance(msg.tag)
	if !ok {
		return sequencer.Event{}, nil, false
	}
	if evt.Done {
		return evt, nil, true
	}
	return evt, t.schedule(msg.tag), true
}

func (t *ticker[T]) schedule(tag uint64) tea.Cmd {
	id, run := t.id, t.run
	return tea.Tick(t.interval, func(time.Time) tea.Msg {
		return tickMsg{id: id, run: run, tag: tag}
	})
}

func (t *ticker[T]) step(i int) (T, bool) { return t.stepper.Step(i) }
func (t *ticker[T]) cancel()              { t.stepper.Cancel() }
func (t *ticker[T]) active() bool         { return t.stepper.Active() }

// delay is a one-step ticker: it fires once, interval after start.
type delay struct {
	t *ticker[struct{}]
}

func newDelay(id seqID, d time.Duration) delay {
	return delay{t: newTicker[struct{}](id, d)}
}

func (d delay) start() tea.Cmd {
	_, cmd := d.t.start([]struct{}{{}})
	return cmd
}

// fired reports whether msg completes the pending delay.
func (d delay) fired(msg tickMsg) bool {
	evt, _, ok := d.t.advance(msg)
	return ok && evt.Done
}

func (d delay) cancel()      { d.t.cancel() }
func (d delay) active() bool { return d.t.active() }
