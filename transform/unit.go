package transform

import "fmt"

// StepResult is the outcome of one Step call, per spec.md §4.1's
// restartable-unit contract:
//
//	{done: false, value: <suspension payload>} -- reached a suspension point
//	{done: true}                               -- ran to completion
//
// Delay is non-nil when the suspension payload was a delay marker; a nil
// Delay on a !Done result means a plain yield (no delay value).
type StepResult struct {
	Done  bool
	Delay *DelayMarker
	Err   error
}

// RestartableUnit is the contract the Scheduler drives: advance one step,
// observe done/delay/error. Implementations must never be stepped
// concurrently (spec.md §4.1: "step() is never called concurrently on the
// same unit").
type RestartableUnit interface {
	Step() StepResult
}

// NewTrivialUnit wraps a plain Go function as a RestartableUnit that runs
// to completion (or panics/errors) on its first Step and never suspends.
// The Kernel's idle task uses NewPersistentUnit instead.
func NewTrivialUnit(run func() error) RestartableUnit {
	return &trivialUnit{run: run}
}

func recoverToErr(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// NewPersistentUnit wraps a plain Go function as a RestartableUnit that
// never completes on its own: every Step re-invokes run and reports
// {Done: false} as long as run returns nil, only reporting {Done: true}
// (with Err set) if run panics or returns a non-nil error. Used by the
// Kernel for the idle task, which per spec.md §3 invariant 6 is never
// deleted, suspended, or blocked under normal operation -- only an actual
// failure may end it.
func NewPersistentUnit(run func() error) RestartableUnit {
	return &persistentUnit{run: run}
}

// persistentUnit never reports Done on a successful Step, unlike
// trivialUnit below which always completes after one Step.
type persistentUnit struct {
	run func() error
}

func (u *persistentUnit) Step() StepResult {
	if err := recoverToErr(u.run); err != nil {
		return StepResult{Done: true, Err: err}
	}
	return StepResult{Done: false}
}

// trivialUnit runs its body synchronously to completion on the first Step,
// per spec.md §4.1 step 2/3 and the §9 Open Question resolution: a body
// with no receiver-qualified delay calls (or whose delay calls couldn't be
// safely qualified) never suspends, and is never re-invoked after its first
// (only) step.
type trivialUnit struct {
	run func() error
	ran bool
}

func (t *trivialUnit) Step() StepResult {
	if t.ran {
		return StepResult{Done: true}
	}
	t.ran = true
	return StepResult{Done: true, Err: recoverToErr(t.run)}
}

// goroutineUnit realizes the restartable-unit contract per spec.md §9
// Design Notes option (a): the body runs on its own goroutine, and Step
// hands it a resume token and waits for the next yielded StepResult.
//
// run is invoked exactly once, on its own goroutine, and is handed a
// suspend callback: calling it blocks the goroutine and is what makes a
// delay/delayMs/yield call from within the script an actual suspension
// point.
type goroutineUnit struct {
	run func(suspend func(*DelayMarker) *DelayMarker) error

	started  bool
	done     bool
	resumeCh chan struct{}
	yieldCh  chan StepResult
}

func newGoroutineUnit(run func(suspend func(*DelayMarker) *DelayMarker) error) *goroutineUnit {
	return &goroutineUnit{
		run:      run,
		resumeCh: make(chan struct{}),
		yieldCh:  make(chan StepResult),
	}
}

func (u *goroutineUnit) Step() StepResult {
	if u.done {
		return StepResult{Done: true}
	}
	if !u.started {
		u.started = true
		go u.loop()
	} else {
		u.resumeCh <- struct{}{}
	}
	res := <-u.yieldCh
	if res.Done {
		u.done = true
	}
	return res
}

func (u *goroutineUnit) loop() {
	defer func() {
		if r := recover(); r != nil {
			u.yieldCh <- StepResult{Done: true, Err: fmt.Errorf("task panicked: %v", r)}
		}
	}()
	err := u.run(u.suspend)
	u.yieldCh <- StepResult{Done: true, Err: err}
}

// suspend is passed to run as the suspend callback; it is what the bound
// TaskContext.Delay/DelayMs/Yield methods call into.
func (u *goroutineUnit) suspend(m *DelayMarker) *DelayMarker {
	u.yieldCh <- StepResult{Done: false, Delay: m}
	<-u.resumeCh
	return m
}
