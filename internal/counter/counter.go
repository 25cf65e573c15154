// Package counter owns the running encounter count.
//
// The count is monotonically non-decreasing while running; it only ever
// drops via the explicit reset operation. All mutation is funneled through
// the named operations below so the invariant stays checkable.
package counter

import (
	"github.com/GriffinCanCode/encounter-tracker/internal/syncx"
)

// State is the counter value plus run flag. LastSavedCount tracks what the
// persistence layer last wrote successfully; the in-memory count stays
// authoritative when a save fails.
type State struct {
	Count          int
	Running        bool
	LastSavedCount int
}

// Counter guards the state behind a single lock.
type Counter struct {
	state *syncx.RWGuard[State]
}

// New creates a counter from the given initial state (loaded from disk or
// fresh).
func New(initial State) *Counter {
	return &Counter{state: syncx.NewGuard(initial)}
}

// Increment records one accepted encounter and returns the new state.
func (c *Counter) Increment() State {
	return c.update(func(s *State) {
		s.Count++
	})
}

// Pause stops the polling loop's mutations. The pending count must be
// persisted by the caller immediately after.
func (c *Counter) Pause() State {
	return c.update(func(s *State) {
		s.Running = false
	})
}

// Resume re-enables counting.
func (c *Counter) Resume() State {
	return c.update(func(s *State) {
		s.Running = true
	})
}

// Reset zeroes the count. The run flag is left untouched.
func (c *Counter) Reset() State {
	return c.update(func(s *State) {
		s.Count = 0
	})
}

// MarkSaved records the count that reached disk.
func (c *Counter) MarkSaved(count int) {
	c.state.Write(func(s *State) {
		s.LastSavedCount = count
	})
}

// Snapshot returns a copy of the current state.
func (c *Counter) Snapshot() State {
	return c.state.Get()
}

// Dirty reports whether the in-memory count is ahead of the last save.
func (c *Counter) Dirty() bool {
	s := c.state.Get()
	return s.Count != s.LastSavedCount
}

func (c *Counter) update(fn func(*State)) State {
	return c.state.Update(func(s *State) any {
		fn(s)
		return *s
	}).(State)
}
