package sequencer

// Event describes what a single tick did to the cursor. Indices are -1 when
// not applicable.
type Event struct {
	Tag      uint64
	Finished int
	Started  int
	Done     bool
}

// Stepper is the pure cursor behind every sequence. It holds no timer and is
// not safe for concurrent use; drivers own the scheduling.
//
// Start activates step 0 immediately. Each accepted Advance finalizes the
// active step and activates the next one. Advancing past the last step
// reports Done and deactivates the stepper.
type Stepper[T any] struct {
	steps  []T
	cursor int
	tag    uint64
	active bool
}

// Start replaces any previous run with steps and returns the new run tag
// together with the initial event. Ticks carrying an older tag are rejected
// from now on.
func (s *Stepper[T]) Start(steps []T) Event {
	s.tag++
	s.steps = cloneSteps(steps)
	s.cursor = 0
	if len(s.steps) == 0 {
		s.active = false
		return Event{Tag: s.tag, Finished: -1, Started: -1, Done: true}
	}
	s.active = true
	return Event{Tag: s.tag, Finished: -1, Started: 0}
}

// Advance moves the cursor one unit forward if tag belongs to the active
// run. ok is false for stale or inactive tags.
func (s *Stepper[T]) Advance(tag uint64) (Event, bool) {
	if !s.active || tag != s.tag {
		return Event{}, false
	}
	evt := Event{Tag: tag, Finished: s.cursor, Started: -1}
	s.cursor++
	if s.cursor < len(s.steps) {
		evt.Started = s.cursor
		return evt, true
	}
	s.active = false
	evt.Done = true
	return evt, true
}

// Cancel invalidates the active run. Pending ticks become stale.
func (s *Stepper[T]) Cancel() {
	if !s.active {
		return
	}
	s.tag++
	s.active = false
}

// Active reports whether a run is in flight.
func (s *Stepper[T]) Active() bool { return s.active }

// Tag returns the current run tag.
func (s *Stepper[T]) Tag() uint64 { return s.tag }

// Cursor returns the index of the active step, or Len() once finished.
func (s *Stepper[T]) Cursor() int { return s.cursor }

// Len returns the number of steps in the current run.
func (s *Stepper[T]) Len() int { return len(s.steps) }

// Step returns the step at index i.
func (s *Stepper[T]) Step(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(s.steps) {
		return zero, false
	}
	return s.steps[i], true
}

func cloneSteps[T any](steps []T) []T {
	if len(steps) == 0 {
		return nil
	}
	out := make([]T, len(steps))
	copy(out, steps)
	return out
}
