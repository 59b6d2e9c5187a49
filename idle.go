package rtos

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
)

const idleRestartCategory = "idle-task-restart"

// idleTaskBody is the idle task's run function, wrapped into a
// transform.NewPersistentUnit by the Kernel so that it never reports Done
// under normal operation: the Scheduler keeps re-selecting the same idle
// task/handle across ticks whenever nothing else is READY, per spec.md §3
// invariant 6 ("idle task ... is never deleted, suspended, or blocked").
// Recreated by the Scheduler -- with a new handle -- only if this ever
// returns a non-nil error, subject to idleRestarter's rate limit (spec.md
// §7 "Idle task behavior"; addition in SPEC_FULL.md §4.6).
func idleTaskBody() error {
	return nil
}

// idleRestarter bounds how often the idle task may be recreated after
// crashing, per SPEC_FULL.md §4.6, using a catrate.Limiter keyed on a single
// fixed category.
type idleRestarter struct {
	limiter *catrate.Limiter
}

func newIdleRestarter(burst int, window time.Duration) *idleRestarter {
	if burst <= 0 {
		burst = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &idleRestarter{
		limiter: catrate.NewLimiter(map[time.Duration]int{window: burst}),
	}
}

// allow reports whether another idle-task restart may occur now. false
// means the crash loop guard has tripped.
func (r *idleRestarter) allow() bool {
	_, ok := r.limiter.Allow(idleRestartCategory)
	return ok
}

// errIdleCrashLoop wraps the idle task's last error (a TaskBodyError) together
// with ErrIdleTaskCrashLoop when the restart budget is exhausted. Tick returns
// it from the tick on which the guard trips onward; Start's tick driver logs
// it and stops (spec.md §7).
func errIdleCrashLoop(cause error) error {
	return fmt.Errorf("%w: %w", ErrIdleTaskCrashLoop, cause)
}
