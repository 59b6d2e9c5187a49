package transform

import "fmt"

// Diagnostic is a non-fatal notice produced while analyzing a task body,
// e.g. that a bare delay(...) call was found with no receiver qualification
// and will therefore not suspend the task.
type Diagnostic struct {
	Message string
	// Pos is the byte offset into the source the diagnostic concerns, or -1
	// if it applies to the body as a whole.
	Pos int
}

func (d Diagnostic) String() string {
	if d.Pos < 0 {
		return d.Message
	}
	return fmt.Sprintf("%s (at byte %d)", d.Message, d.Pos)
}

// BuildError reports that Build could not produce a restartable-unit
// factory for a task body: the source failed to parse, no function literal
// could be located in it, or the (possibly rewritten) source failed to
// compile.
type BuildError struct {
	Diagnostics []Diagnostic
	Cause       error
}

func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transform: %v", e.Cause)
	}
	return "transform: build failed"
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *BuildError) Unwrap() error { return e.Cause }
