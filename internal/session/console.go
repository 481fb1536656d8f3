package session

import (
	"fmt"
	"sync"
)

// Console collects diagnostic output from a playground session, such as
// transpile failures, so the preview panel can show them alongside the
// program's own output. It is released when the session is disposed.
type Console struct {
	mu     sync.Mutex
	lines  []string
	closed bool
}

func newConsole() *Console {
	return &Console{}
}

// Logf appends a formatted line. Appends after Close are dropped.
func (c *Console) Logf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the collected output.
func (c *Console) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// Close releases the console. Further appends are no-ops.
func (c *Console) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.lines = nil
}
