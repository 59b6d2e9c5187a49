package rtos

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-rtos/transform"
)

// Kernel is the public facade of spec.md §4.5: construct one with
// SchedulerConfig and KernelOptions, register task bodies through
// CreateTask, and drive it with Start/Stop (or Tick directly for tests).
//
// Kernel's public methods that might be called from outside the tick
// driver goroutine (CreateTask, SuspendTask, GetSystemStatus, ...) serialize
// access to the underlying Scheduler/TaskTable with mu, per SPEC_FULL.md §5.
type Kernel struct {
	mu  sync.Mutex
	cfg SchedulerConfig
	opt *kernelOptions

	sched *Scheduler

	running  atomic.Bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	nameSeq  int64
}

// NewKernel constructs a Kernel from a SchedulerConfig and any number of
// KernelOptions. Returns ErrInvalidTickRate if cfg.TickRate <= 0.
func NewKernel(cfg SchedulerConfig, opts ...KernelOption) (*Kernel, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	k := &Kernel{
		cfg: cfg,
		opt: resolveKernelOptions(opts),
	}
	if k.opt.logger != nil {
		SetLogger(k.opt.logger)
	}

	sched, err := NewScheduler(cfg, k, func() (transform.RestartableUnit, error) {
		return transform.NewPersistentUnit(idleTaskBody), nil
	})
	if err != nil {
		return nil, err
	}
	k.sched = sched
	return k, nil
}

// TickRate implements transform.RateProvider, so the Kernel itself can be
// passed wherever a RateProvider is required.
func (k *Kernel) TickRate() float64 { return k.cfg.TickRate }

// CreateTask registers a new task body, per spec.md §4.5. body is
// JavaScript-family source text: a function expression or declaration whose
// first parameter is the task's kernel-facing context. name defaults to
// "Task_<n>" using a per-Kernel counter when empty.
func (k *Kernel) CreateTask(body string, priority, stackHint int, params any, name string) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	factory, diags, err := transform.Build(body, k.opt.mode)
	if err != nil {
		return 0, &TransformFailure{Name: name, Cause: err}
	}

	if stackHint <= 0 {
		stackHint = k.cfg.StackSize
	}
	if name == "" {
		k.nameSeq++
		name = fmt.Sprintf("Task_%d", k.nameSeq)
	}

	// handle is assigned by TaskTable.Create, but the Factory needs the
	// handle/name up front. So peek the table's next sequence number, build
	// the unit bound to it, then Create and check the two agree.
	handle := k.sched.Tasks().peekNextHandle()
	unit, err := factory.New(handle, name, params, k)
	if err != nil {
		return 0, &TransformFailure{Name: name, Cause: err}
	}

	got := k.sched.Tasks().Create(name, unit, priority, stackHint, params)
	if got != handle {
		// Should be unreachable: peekNextHandle and Create agree on
		// sequencing as long as both are called under k.mu.
		return 0, fmt.Errorf("rtos: internal handle mismatch (reserved %d, got %d)", handle, got)
	}
	k.sched.setDiagnostics(handle, diags)
	return handle, nil
}

// DeleteTask removes a task from all sets, discarding its restartable unit.
func (k *Kernel) DeleteTask(handle int64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sched.Tasks().Delete(handle)
}

// SuspendTask moves a non-SUSPENDED task to SUSPENDED.
func (k *Kernel) SuspendTask(handle int64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sched.Tasks().Suspend(handle)
}

// ResumeTask moves a SUSPENDED task back to READY.
func (k *Kernel) ResumeTask(handle int64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sched.Tasks().Resume(handle)
}

// SetTaskPriority updates a task's priority, re-inserting it into the
// ready queue if currently READY (per spec.md §9 open question: on a
// BLOCKED task it only updates the stored priority; re-insertion at the new
// priority happens on unblock, since TaskTable.Unblock re-inserts using the
// current Priority field).
func (k *Kernel) SetTaskPriority(handle int64, priority int) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sched.Tasks().SetPriority(handle, priority)
}

// Delay constructs the delay marker delay(n) would produce. Outside of a
// running task's own suspension point (i.e. called directly on the
// Kernel, not through a bound TaskContext), it never blocks -- it only
// returns the marker value, per spec.md §4.4.
func (k *Kernel) Delay(n int64) transform.DelayMarker {
	return *transform.NewDelayMarker(n)
}

// DelayMs is Delay expressed in milliseconds via the Kernel's configured
// tick rate.
func (k *Kernel) DelayMs(ms int64) transform.DelayMarker {
	return *transform.NewDelayMsMarker(ms, k.cfg.TickRate)
}

// Yield returns a zero-tick delay marker: a plain, non-blocking yield.
func (k *Kernel) Yield() transform.DelayMarker {
	return *transform.NewDelayMarker(0)
}

// GetTickCount returns the number of ticks processed so far.
func (k *Kernel) GetTickCount() int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sched.TickCount()
}

// SystemStatus is the return shape of GetSystemStatus, per spec.md §6.
type SystemStatus struct {
	IsRunning      bool
	TickCount      int64
	CurrentTask    int64
	HasCurrentTask bool
	ReadyTasks     int
	BlockedTasks   int
	SuspendedTasks int
	TotalTasks     int
}

// GetSystemStatus reports a snapshot of the scheduler's aggregate state.
func (k *Kernel) GetSystemStatus() SystemStatus {
	k.mu.Lock()
	defer k.mu.Unlock()
	t := k.sched.Tasks()
	current, hasCurrent := t.Running()
	ready, blocked, suspended := 0, 0, 0
	for _, tcb := range t.All() {
		switch tcb.State {
		case StateReady:
			ready++
		case StateBlocked:
			blocked++
		case StateSuspended:
			suspended++
		}
	}
	return SystemStatus{
		IsRunning:      k.running.Load(),
		TickCount:      k.sched.TickCount(),
		CurrentTask:    current,
		HasCurrentTask: hasCurrent,
		ReadyTasks:     ready,
		BlockedTasks:   blocked,
		SuspendedTasks: suspended,
		TotalTasks:     t.Len(),
	}
}

// GetTaskInfo returns a TCB snapshot for handle, or (TCB{}, false) if it
// does not exist.
func (k *Kernel) GetTaskInfo(handle int64) (TCB, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	tcb := k.sched.Tasks().Get(handle)
	if tcb == nil {
		return TCB{}, false
	}
	return tcb.Snapshot(), true
}

// GetAllTasks returns a snapshot of every live task's TCB.
func (k *Kernel) GetAllTasks() []TCB {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sched.Tasks().All()
}

// LastDiagnostics returns the non-fatal Diagnostics recorded when handle
// was created (SPEC_FULL.md §3.1), or nil if there were none / it doesn't
// exist.
func (k *Kernel) LastDiagnostics(handle int64) []transform.Diagnostic {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sched.Diagnostics(handle)
}

// SetYieldMode switches the Transformer mode used by subsequent CreateTask
// calls: true selects statement-level mode, false delay-only mode. Tasks
// already created keep the mode they were built with.
func (k *Kernel) SetYieldMode(yieldAllStatements bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if yieldAllStatements {
		k.opt.mode = transform.ModeStatementLevel
	} else {
		k.opt.mode = transform.ModeDelayOnly
	}
}

// GetYieldMode reports whether the Transformer is currently configured for
// statement-level mode.
func (k *Kernel) GetYieldMode() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.opt.mode == transform.ModeStatementLevel
}

// Tick advances the scheduler by exactly one tick. Exposed directly for
// tests and embedders driving their own clock; Start/Stop use it
// internally on a periodic timer.
func (k *Kernel) Tick() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sched.Tick()
}

// Start begins the periodic tick driver at the configured tick rate. A
// no-op if already running.
func (k *Kernel) Start() {
	if !k.running.CompareAndSwap(false, true) {
		return
	}
	k.stopCh = make(chan struct{})
	k.doneCh = make(chan struct{})
	interval := time.Duration(float64(time.Second) / k.cfg.TickRate)

	go func() {
		defer close(k.doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-k.stopCh:
				return
			case <-ticker.C:
				if err := k.Tick(); err != nil {
					logger().Err().Err(err).Log("scheduler stopped")
					k.running.Store(false)
					return
				}
			}
		}
	}()
}

// Stop halts the tick driver. A no-op if not running. Blocks until the
// driver goroutine has exited.
func (k *Kernel) Stop() {
	if !k.running.CompareAndSwap(true, false) {
		return
	}
	close(k.stopCh)
	<-k.doneCh
}

// Close stops the tick driver (if running). Provided for embedders that
// want deterministic teardown, e.g. via defer.
func (k *Kernel) Close() error {
	k.Stop()
	return nil
}
