// Package sequencer fakes asynchronous progress. A Stepper is the pure cursor
// over an ordered list of steps; a Sequencer drives a Stepper from an
// injected clock and reports each step as it becomes active. The same
// primitive backs clone log playback, plan progression, test replays and
// deployment log streaming, parameterized only by the step payload.
package sequencer
