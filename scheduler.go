package rtos

import (
	"time"

	"github.com/joeycumines/go-rtos/transform"
)

// Scheduler drives the tick loop of spec.md §4.4 over a TaskTable. It owns
// the tick counter, the idle task, and the idle-task crash-loop guard, but
// has no opinion on wall-clock timing -- the Kernel's tick driver calls
// Tick once per configured interval.
type Scheduler struct {
	cfg   SchedulerConfig
	tasks *TaskTable
	rates transform.RateProvider

	tickCount int64

	idleHandle int64
	idleFactory func() (transform.RestartableUnit, error)
	idleRestart *idleRestarter

	fatalErr error

	diagnostics map[int64][]transform.Diagnostic
}

// NewScheduler constructs a Scheduler over a fresh TaskTable, and creates
// the initial idle task using idleFactory (invariant 6: there is always a
// runnable task).
func NewScheduler(cfg SchedulerConfig, rates transform.RateProvider, idleFactory func() (transform.RestartableUnit, error)) (*Scheduler, error) {
	if rates == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		cfg:         cfg,
		tasks:       NewTaskTable(),
		rates:       rates,
		idleFactory: idleFactory,
		idleRestart: newIdleRestarter(cfg.IdleRestartBurst, cfg.IdleRestartWindow),
		diagnostics: make(map[int64][]transform.Diagnostic),
	}
	if err := s.spawnIdleTask(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) spawnIdleTask() error {
	unit, err := s.idleFactory()
	if err != nil {
		return err
	}
	s.idleHandle = s.tasks.Create("idle", unit, lowestPriority, s.cfg.IdleTaskStackSize, nil)
	return nil
}

// lowestPriority is the priority assigned to the idle task: always picked
// last, behind every real task.
const lowestPriority = -1 << 31

// TickCount returns the number of ticks processed so far.
func (s *Scheduler) TickCount() int64 { return s.tickCount }

// FatalErr returns the error that tripped the idle-task crash-loop guard,
// if any. Once set, Tick becomes a no-op that keeps returning this error.
func (s *Scheduler) FatalErr() error { return s.fatalErr }

// Tasks exposes the underlying TaskTable for the Kernel facade.
func (s *Scheduler) Tasks() *TaskTable { return s.tasks }

// Diagnostics returns the non-fatal transform.Diagnostic values recorded
// for handle at task-creation time, per SPEC_FULL.md §3.1.
func (s *Scheduler) Diagnostics(handle int64) []transform.Diagnostic {
	return s.diagnostics[handle]
}

// setDiagnostics records the diagnostics produced while building handle's
// restartable unit.
func (s *Scheduler) setDiagnostics(handle int64, d []transform.Diagnostic) {
	if len(d) == 0 {
		return
	}
	s.diagnostics[handle] = d
}

// Tick advances the scheduler by exactly one tick, per spec.md §4.4.
func (s *Scheduler) Tick() error {
	if s.fatalErr != nil {
		return s.fatalErr
	}

	s.tickCount++

	// Step 2: decrement delays, unblock expired ones.
	for _, handle := range s.tasks.BlockedHandles() {
		tcb := s.tasks.Get(handle)
		if tcb == nil || tcb.BlockedOn != BlockReasonDelay {
			continue
		}
		if tcb.DelayTicks > 0 {
			tcb.DelayTicks--
		}
		if tcb.DelayTicks == 0 {
			s.tasks.Unblock(handle)
		}
	}

	// Step 3/4: select the next task to run. The currently RUNNING task (if
	// any) is not itself a member of the ready queue (invariant 2), so its
	// claim to keep running is compared by priority against whatever is at
	// the head of the ready queue: a strictly-lower-priority ready head
	// (notably the idle task, which is always ready when nothing else is
	// running) never preempts a still-running task; an equal-or-higher
	// priority head does, which is what gives same-priority peers their
	// round-robin rotation and the idle task does not otherwise interrupt a
	// busy higher-priority task across ticks (spec.md §8 scenario 1).
	running, wasRunning := s.tasks.Running()
	headHandle, headReady := s.tasks.NextReady()

	var handle int64
	switch {
	case wasRunning && (!headReady || s.tasks.Get(headHandle).Priority < s.tasks.Get(running).Priority):
		handle = running
	case headReady:
		handle = headHandle
	default:
		// Unreachable under invariant 6 (idle is always ready unless it is
		// itself the running task, which the first case already covers).
		return nil
	}

	if wasRunning && handle != running {
		s.tasks.YieldCurrent()
	}
	if _, stillRunning := s.tasks.Running(); !stillRunning {
		s.tasks.SetRunning(handle)
	}

	// Step 5: advance the picked task by one step().
	tcb := s.tasks.Get(handle)
	if tcb == nil {
		return nil
	}
	res := tcb.unit.Step()
	tcb.RunCount++
	tcb.LastRanAt = time.Now()

	switch {
	case res.Err != nil:
		err := &TaskBodyError{Handle: handle, Name: tcb.Name, Cause: res.Err}
		s.logTaskError(handle, tcb.Name, err)
		s.tasks.Delete(handle)
		s.onTaskGone(handle, err)

	case res.Done:
		s.tasks.Delete(handle)
		s.onTaskGone(handle, nil)

	case res.Delay != nil && res.Delay.DelayTicks > 0:
		tcb.DelayTicks = int(res.Delay.DelayTicks)
		s.tasks.Block(handle, BlockReasonDelay)

	default:
		// Plain yield (res.Delay == nil, or a zero-tick delay marker): stays
		// RUNNING; the scheduler yields it at the next tick's step 4 if a
		// higher/equal-priority peer is ready.
	}

	return s.fatalErr
}

// onTaskGone handles bookkeeping when a task (including the idle task)
// leaves the table, recreating the idle task if it was the one that left.
func (s *Scheduler) onTaskGone(handle int64, cause error) {
	delete(s.diagnostics, handle)
	if handle != s.idleHandle {
		return
	}
	if cause != nil {
		if !s.idleRestart.allow() {
			s.fatalErr = errIdleCrashLoop(cause)
			return
		}
	}
	if err := s.spawnIdleTask(); err != nil {
		s.fatalErr = err
	}
}

func (s *Scheduler) logTaskError(handle int64, name string, err error) {
	logger().Err().Int64("handle", handle).Str("task", name).Err(err).Log("task body raised an error; task deleted")
}
