package rtos

import (
	"errors"
	"fmt"
)

// Sentinel, programmer-facing construction errors. These are the only
// errors this package returns synchronously from construction; routine
// operations (suspend/resume/delete/...) report failure as a bool, per
// spec.md §7.
var (
	// ErrInvalidTickRate is returned by NewKernel when SchedulerConfig.TickRate
	// is not strictly positive.
	ErrInvalidTickRate = errors.New("rtos: tickRate must be > 0")

	// ErrNilConfig is returned by NewScheduler when passed a nil RateProvider.
	ErrNilConfig = errors.New("rtos: scheduler requires a non-nil rate provider")

	// ErrIdleTaskCrashLoop is returned when the idle task has crashed more
	// than the configured burst allowance within the configured window (see
	// SPEC_FULL.md §4.6); the scheduler stops ticking rather than spin
	// forever recreating a task that immediately panics again.
	ErrIdleTaskCrashLoop = errors.New("rtos: idle task is crash-looping, scheduler stopped")
)

// TaskBodyError wraps a panic or returned error from a restartable unit's
// step, attributed to a specific task. Per spec.md §7 this is caught at the
// scheduler boundary: the task is logged and deleted, other tasks continue
// unaffected.
type TaskBodyError struct {
	Handle int64
	Name   string
	Cause  error
}

func (e *TaskBodyError) Error() string {
	return fmt.Sprintf("rtos: task %d (%s) body error: %v", e.Handle, e.Name, e.Cause)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *TaskBodyError) Unwrap() error { return e.Cause }

// TransformFailure reports that the Transformer could not turn a task body
// into a restartable unit. Per spec.md §7 this surfaces synchronously from
// createTask.
type TransformFailure struct {
	Name  string
	Cause error
}

func (e *TransformFailure) Error() string {
	return fmt.Sprintf("rtos: transform failure for task %q: %v", e.Name, e.Cause)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *TransformFailure) Unwrap() error { return e.Cause }
