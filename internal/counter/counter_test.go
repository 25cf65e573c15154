package counter

import (
	"sync"
	"testing"
)

func TestIncrement(t *testing.T) {
	c := New(State{Running: true})

	s := c.Increment()
	if s.Count != 1 {
		t.Errorf("Count = %d, want 1", s.Count)
	}

	s = c.Increment()
	if s.Count != 2 {
		t.Errorf("Count = %d, want 2", s.Count)
	}
}

func TestPauseResume(t *testing.T) {
	c := New(State{Count: 5, Running: true})

	if s := c.Pause(); s.Running {
		t.Error("Running = true after Pause")
	}
	if s := c.Snapshot(); s.Count != 5 {
		t.Errorf("Pause changed count to %d", s.Count)
	}

	if s := c.Resume(); !s.Running {
		t.Error("Running = false after Resume")
	}
}

func TestResetZeroesCountOnly(t *testing.T) {
	c := New(State{Count: 42, Running: true})

	s := c.Reset()
	if s.Count != 0 {
		t.Errorf("Count = %d after Reset, want 0", s.Count)
	}
	if !s.Running {
		t.Error("Reset should not change the run flag")
	}
}

func TestMarkSavedAndDirty(t *testing.T) {
	c := New(State{})

	c.Increment()
	if !c.Dirty() {
		t.Error("counter should be dirty after unsaved increment")
	}

	c.MarkSaved(1)
	if c.Dirty() {
		t.Error("counter should be clean after MarkSaved")
	}
}

func TestConcurrentIncrements(t *testing.T) {
	c := New(State{Running: true})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Increment()
		}()
	}
	wg.Wait()

	if s := c.Snapshot(); s.Count != 50 {
		t.Errorf("Count = %d, want 50", s.Count)
	}
}
