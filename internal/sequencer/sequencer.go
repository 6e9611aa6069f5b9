package sequencer

import (
	"sync"
	"time"

	"github.com/kingrea/workbench/internal/clock"
)

// Sequencer plays an ordered list of steps at a fixed interval on an
// injected clock. One instance drives at most one ticking timer: Run cancels
// whatever run was in flight before starting the new one.
//
// The timer for the next step is armed only after the current onTick
// returns, so callbacks of one run never overlap and onComplete starts after
// every onTick of its run has returned.
type Sequencer[T any] struct {
	clock clock.Clock

	mu         sync.Mutex
	stepper    Stepper[T]
	timer      clock.Timer
	interval   time.Duration
	onTick     func(int, T)
	onComplete func()
}

// New returns a sequencer scheduling on clk. A nil clock falls back to the
// real clock.
func New[T any](clk clock.Clock) *Sequencer[T] {
	if clk == nil {
		clk = clock.Real()
	}
	return &Sequencer[T]{clock: clk}
}

// Run starts playing steps. onTick fires when a step becomes active: step 0
// immediately, step k at k*interval. onComplete fires once at
// len(steps)*interval, after the last step is finalized. Either callback may
// be nil. Callbacks may call Run or Cancel.
func (s *Sequencer[T]) Run(steps []T, interval time.Duration, onTick func(int, T), onComplete func()) {
	if interval <= 0 {
		interval = time.Millisecond
	}
	s.mu.Lock()
	s.stopTimerLocked()
	evt := s.stepper.Start(steps)
	s.interval = interval
	s.onTick = onTick
	s.onComplete = onComplete
	if evt.Done {
		s.onTick = nil
		s.onComplete = nil
		s.mu.Unlock()
		if onComplete != nil {
			onComplete()
		}
		return
	}
	first, _ := s.stepper.Step(0)
	s.mu.Unlock()
	s.deliverTick(evt.Tag, onTick, 0, first)
	s.arm(evt.Tag)
}

// Cancel stops the in-flight run. No callback of the cancelled run starts
// after Cancel returns.
func (s *Sequencer[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.stepper.Cancel()
	s.onTick = nil
	s.onComplete = nil
}

// Running reports whether a run is in flight.
func (s *Sequencer[T]) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepper.Active()
}

// arm schedules the next tick unless the run was cancelled or replaced
// while its callback ran.
func (s *Sequencer[T]) arm(tag uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(tag) {
		return
	}
	s.timer = s.clock.AfterFunc(s.interval, func() { s.fire(tag) })
}

func (s *Sequencer[T]) current(tag uint64) bool {
	return s.stepper.Active() && s.stepper.Tag() == tag
}

func (s *Sequencer[T]) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Sequencer[T]) fire(tag uint64) {
	s.mu.Lock()
	evt, ok := s.stepper.Advance(tag)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	onTick, onComplete := s.onTick, s.onComplete
	if evt.Done {
		s.onTick = nil
		s.onComplete = nil
		s.mu.Unlock()
		if onComplete != nil {
			onComplete()
		}
		return
	}
	step, _ := s.stepper.Step(evt.Started)
	s.mu.Unlock()
	s.deliverTick(tag, onTick, evt.Started, step)
	s.arm(tag)
}

func (s *Sequencer[T]) deliverTick(tag uint64, fn func(int, T), idx int, step T) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	current := s.current(tag)
	s.mu.Unlock()
	if current {
		fn(idx, step)
	}
}
