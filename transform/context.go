package transform

import "math"

// DelayMarker is the value yielded to request a tick-count-based block, or
// returned (without suspending) by the bare delay/delayMs globals. Field
// names are exported verbatim into JS via goja.UncapFieldNameMapper, giving
// scripts a delayTicks property.
type DelayMarker struct {
	DelayTicks int64
}

// RateProvider supplies the scheduler's configured tick rate, needed to
// convert a millisecond delay into a tick count.
type RateProvider interface {
	TickRate() float64
}

// NewDelayMarker builds the delay marker delay(n) produces: n clamped to
// max(0, n). Exported so a Kernel facade can construct the same markers
// outside of a running script context. The marker carries max(0, n) whether
// or not a task is running; it is not reduced to zero ticks outside a task
// context.
func NewDelayMarker(n int64) *DelayMarker {
	return newDelayMarker(n)
}

// NewDelayMsMarker is NewDelayMarker expressed in milliseconds, converted
// via tickRate (ceil(ms * tickRate / 1000)).
func NewDelayMsMarker(ms int64, tickRate float64) *DelayMarker {
	return newDelayMsMarker(ms, tickRate)
}

func newDelayMarker(n int64) *DelayMarker {
	if n < 0 {
		n = 0
	}
	return &DelayMarker{DelayTicks: n}
}

func newDelayMsMarker(ms int64, tickRate float64) *DelayMarker {
	if ms < 0 {
		ms = 0
	}
	if tickRate <= 0 {
		tickRate = 1
	}
	ticks := int64(math.Ceil(float64(ms) * tickRate / 1000))
	if ticks < 0 {
		ticks = 0
	}
	return &DelayMarker{DelayTicks: ticks}
}

// TaskContext is the kernel-facing object bound to a task body's receiver
// parameter -- the "canonical binding" of spec.md §4.1 step 5, realized by
// being passed as the real first argument of the body's function call
// rather than by rewriting identifiers (see DESIGN.md).
//
// Its exported methods are surfaced to JS as delay, delayMs, yield, handle,
// name and params (goja.UncapFieldNameMapper lower-cases the first rune).
type TaskContext struct {
	handle  int64
	name    string
	params  any
	rates   RateProvider
	suspend func(*DelayMarker) *DelayMarker
}

// Delay requests a tick-count delay and suspends the task until it expires.
// n is clamped to max(0, n); n == 0 is a plain, non-blocking yield.
func (c *TaskContext) Delay(n int64) *DelayMarker {
	return c.suspend(newDelayMarker(n))
}

// DelayMs is Delay expressed in milliseconds, converted via the scheduler's
// configured tick rate (ceil(ms * tickRate / 1000)).
func (c *TaskContext) DelayMs(ms int64) *DelayMarker {
	return c.suspend(newDelayMsMarker(ms, c.rates.TickRate()))
}

// Yield suspends the task with no delay value. The task stays RUNNING; on the
// next tick the scheduler moves it to the tail of its priority band only if a
// READY task of equal or higher priority is waiting.
func (c *TaskContext) Yield() {
	c.suspend(nil)
}

// Handle returns the task's stable handle.
func (c *TaskContext) Handle() int64 { return c.handle }

// Name returns the task's informational name.
func (c *TaskContext) Name() string { return c.name }

// Params returns the opaque value passed through from createTask.
func (c *TaskContext) Params() any { return c.params }
