// Package transpile converts role-document source text to its
// browser-executable form: markup dialects to HTML, stylesheet dialects to
// flat CSS, and script dialects to plain JavaScript.
//
// Every adapter is a pure, independently failable function. A failure in one
// role never blocks another: the orchestrator keeps the previously rendered
// layer when an adapter reports an error. Empty input short-circuits to
// empty output for every adapter.
package transpile

import "fmt"

// Error wraps an adapter failure with role/dialect context. The orchestrator
// logs it and leaves the previous layer untouched; it never reaches the
// preview or the user.
type Error struct {
	Stage   string // "markup", "stylesheet", "script"
	Dialect string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s transpile (%s) failed: %v", e.Stage, e.Dialect, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
