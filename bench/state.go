// Package bench measures the worst-case latency of a timer-driven workload.
//
// A Runner arms the partition timer, and each firing runs a Handler that
// busy-waits for a target amount of execution time and records how long that
// took on the hardware clock. The Runner spins until a fixed number of firings
// completed and reports the worst latency for each target.
package bench

import "sync/atomic"

// State is shared between the Runner and the Handler.
//
// Field discipline: the Runner writes target and resets cycles/worst while the
// previous firing can no longer run; the Handler writes cycles and worst while
// the Runner is spinning. All accesses are atomic so every poll sees a fresh
// value.
type State struct {
	cycles atomic.Uint32
	worst  atomic.Uint64
	target atomic.Uint64
}

// NewState returns a zeroed State.
func NewState() *State {
	return &State{}
}

// Reset starts a new iteration with the given target.
func (s *State) Reset(target uint64) {
	s.target.Store(target)
	s.worst.Store(0)
	s.cycles.Store(0)
}

// Target returns the active workload duration in execution-clock ticks.
func (s *State) Target() uint64 { return s.target.Load() }

// Cycles returns the number of completed firings in this iteration.
func (s *State) Cycles() uint32 { return s.cycles.Load() }

// Worst returns the largest latency observed in this iteration, or 0 if none.
func (s *State) Worst() uint64 { return s.worst.Load() }

// Observe records a latency. Zero is the unset sentinel, so the first
// observation always wins and a genuine zero latency is indistinguishable
// from no observation.
func (s *State) Observe(latency uint64) {
	if cur := s.worst.Load(); latency > cur || cur == 0 {
		s.worst.Store(latency)
	}
}

func (s *State) completeCycle() {
	s.cycles.Add(1)
}
