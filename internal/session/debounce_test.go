package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerTrailingEdgeLatestWins(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	defer d.Stop()

	var fired atomic.Int32
	var got atomic.Value

	d.Schedule(func() { fired.Add(1); got.Store("first") })
	d.Schedule(func() { fired.Add(1); got.Store("second") })

	time.Sleep(100 * time.Millisecond)

	if fired.Load() != 1 {
		t.Errorf("fired = %d, want 1", fired.Load())
	}
	if got.Load() != "second" {
		t.Errorf("fired closure = %v, want the latest", got.Load())
	}
}

func TestDebouncerSeparateWindowsBothFire(t *testing.T) {
	d := NewDebouncer(5 * time.Millisecond)
	defer d.Stop()

	var fired atomic.Int32
	d.Schedule(func() { fired.Add(1) })
	time.Sleep(50 * time.Millisecond)
	d.Schedule(func() { fired.Add(1) })
	time.Sleep(50 * time.Millisecond)

	if fired.Load() != 2 {
		t.Errorf("fired = %d, want 2", fired.Load())
	}
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)

	var fired atomic.Int32
	d.Schedule(func() { fired.Add(1) })
	d.Stop()

	time.Sleep(50 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("pending work should not fire after Stop")
	}

	d.Schedule(func() { fired.Add(1) })
	time.Sleep(50 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("a stopped debouncer should stay inert")
	}
}

func TestConsole(t *testing.T) {
	c := newConsole()
	c.Logf("hello %d", 1)
	c.Logf("world")

	lines := c.Lines()
	if len(lines) != 2 || lines[0] != "hello 1" || lines[1] != "world" {
		t.Errorf("Lines = %v", lines)
	}

	// Returned slice is a copy.
	lines[0] = "mutated"
	if c.Lines()[0] != "hello 1" {
		t.Error("Lines should return a copy")
	}

	c.Close()
	c.Logf("late")
	if got := c.Lines(); len(got) != 0 {
		t.Errorf("closed console should drop lines, got %v", got)
	}
}
