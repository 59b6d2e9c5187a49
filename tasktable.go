package rtos

import (
	"time"

	"github.com/joeycumines/go-rtos/transform"
)

// TaskTable owns the set of tasks and their control blocks, and the
// ready/blocked/suspended memberships, per spec.md §4.2. All operations are
// synchronous and never suspend; invalid transitions return false rather
// than erroring (spec.md §4.2 "Error semantics").
//
// TaskTable is the sole mutable scheduling structure; because execution is
// single-threaded cooperative, none of its methods take a lock -- callers
// must serialize access themselves (the Kernel does so with its mutex, for
// both the tick driver and its public methods).
type TaskTable struct {
	ready     *ReadyQueue
	tasks     map[int64]*TCB
	blocked   map[int64]struct{}
	suspended map[int64]struct{}
	running   int64 // 0 means no task is RUNNING
	nextSeq   int64
}

// NewTaskTable returns an empty TaskTable.
func NewTaskTable() *TaskTable {
	return &TaskTable{
		ready:     NewReadyQueue(),
		tasks:     make(map[int64]*TCB),
		blocked:   make(map[int64]struct{}),
		suspended: make(map[int64]struct{}),
	}
}

// Create allocates a handle, stores a new TCB in READY, and returns the
// handle. stackHint is an opaque, non-semantic size hint that does not
// bound execution.
func (t *TaskTable) Create(name string, unit transform.RestartableUnit, priority, stackHint int, params any) int64 {
	t.nextSeq++
	handle := t.nextSeq
	now := time.Now()
	tcb := &TCB{
		Handle:    handle,
		Name:      name,
		Priority:  priority,
		State:     StateReady,
		StackHint: stackHint,
		Params:    params,
		CreatedAt: now,
		unit:      unit,
	}
	t.tasks[handle] = tcb
	t.ready.Insert(handle, priority)
	return handle
}

// peekNextHandle returns the handle the next Create call will assign,
// without consuming it. Callers that need a task's handle before its
// restartable unit exists (the Kernel binds handle/name into the unit at
// construction time) must call this and then Create without any
// intervening Create call, under the same lock.
func (t *TaskTable) peekNextHandle() int64 {
	return t.nextSeq + 1
}

// Get returns the live TCB for handle, or nil if it doesn't exist. Callers
// within this package may mutate State/Priority/etc. directly; external
// callers should use TCB.Snapshot.
func (t *TaskTable) Get(handle int64) *TCB {
	return t.tasks[handle]
}

// Delete removes the task from all sets; if it was RUNNING, clears the
// running slot. Returns true iff the task existed.
func (t *TaskTable) Delete(handle int64) bool {
	tcb, ok := t.tasks[handle]
	if !ok {
		return false
	}
	switch tcb.State {
	case StateReady:
		t.ready.Remove(handle)
	case StateBlocked:
		delete(t.blocked, handle)
	case StateSuspended:
		delete(t.suspended, handle)
	case StateRunning:
		if t.running == handle {
			t.running = 0
		}
	}
	delete(t.tasks, handle)
	return true
}

// Suspend is legal only from a non-SUSPENDED state; moves the task to
// SUSPENDED. Returns false if the task does not exist or is already
// SUSPENDED.
func (t *TaskTable) Suspend(handle int64) bool {
	tcb, ok := t.tasks[handle]
	if !ok || tcb.State == StateSuspended {
		return false
	}
	switch tcb.State {
	case StateReady:
		t.ready.Remove(handle)
	case StateBlocked:
		delete(t.blocked, handle)
		tcb.BlockedOn = BlockReasonNone
		tcb.DelayTicks = 0
	case StateRunning:
		if t.running == handle {
			t.running = 0
		}
	}
	tcb.State = StateSuspended
	t.suspended[handle] = struct{}{}
	return true
}

// Resume is legal only from SUSPENDED; returns the task to READY. Returns
// false otherwise (including for a handle that does not exist).
func (t *TaskTable) Resume(handle int64) bool {
	tcb, ok := t.tasks[handle]
	if !ok || tcb.State != StateSuspended {
		return false
	}
	delete(t.suspended, handle)
	tcb.State = StateReady
	t.ready.Insert(handle, tcb.Priority)
	return true
}

// Block is legal only from READY/RUNNING; moves the task to BLOCKED with
// blockedOn = reason. Returns false otherwise.
func (t *TaskTable) Block(handle int64, reason BlockReason) bool {
	tcb, ok := t.tasks[handle]
	if !ok {
		return false
	}
	switch tcb.State {
	case StateReady:
		t.ready.Remove(handle)
	case StateRunning:
		if t.running == handle {
			t.running = 0
		}
	default:
		return false
	}
	tcb.State = StateBlocked
	tcb.BlockedOn = reason
	t.blocked[handle] = struct{}{}
	return true
}

// Unblock is legal only from BLOCKED; clears blockedOn, zeros delayTicks,
// and returns the task to READY.
func (t *TaskTable) Unblock(handle int64) bool {
	tcb, ok := t.tasks[handle]
	if !ok || tcb.State != StateBlocked {
		return false
	}
	delete(t.blocked, handle)
	tcb.BlockedOn = BlockReasonNone
	tcb.DelayTicks = 0
	tcb.State = StateReady
	t.ready.Insert(handle, tcb.Priority)
	return true
}

// SetPriority updates a task's priority; if READY, re-inserts into the
// ReadyQueue so ordering is maintained. Returns false if the task does not
// exist.
func (t *TaskTable) SetPriority(handle int64, priority int) bool {
	tcb, ok := t.tasks[handle]
	if !ok {
		return false
	}
	if tcb.State == StateReady {
		t.ready.Remove(handle)
		t.ready.Insert(handle, priority)
	}
	tcb.Priority = priority
	return true
}

// NextReady reads the head of the ready queue (highest priority; among
// ties, oldest-inserted) without removing it. Returns (0, false) if no task
// is READY.
func (t *TaskTable) NextReady() (int64, bool) {
	return t.ready.Head()
}

// YieldCurrent transitions the RUNNING task (if any) back to READY,
// appending it to the tail of its priority band, and clears the running
// slot.
func (t *TaskTable) YieldCurrent() {
	if t.running == 0 {
		return
	}
	handle := t.running
	t.running = 0
	tcb, ok := t.tasks[handle]
	if !ok {
		return
	}
	tcb.State = StateReady
	t.ready.Insert(handle, tcb.Priority)
}

// SetRunning removes handle from the ready queue and marks it RUNNING. The
// caller (Scheduler) is responsible for having already yielded any
// previously-running task.
func (t *TaskTable) SetRunning(handle int64) bool {
	tcb, ok := t.tasks[handle]
	if !ok || tcb.State != StateReady {
		return false
	}
	t.ready.Remove(handle)
	tcb.State = StateRunning
	t.running = handle
	return true
}

// Running returns the handle of the currently RUNNING task, or (0, false)
// if none.
func (t *TaskTable) Running() (int64, bool) {
	if t.running == 0 {
		return 0, false
	}
	return t.running, true
}

// BlockedHandles returns a snapshot of the handles currently BLOCKED.
func (t *TaskTable) BlockedHandles() []int64 {
	out := make([]int64, 0, len(t.blocked))
	for h := range t.blocked {
		out = append(out, h)
	}
	return out
}

// All returns a snapshot of every live TCB, in no particular order.
func (t *TaskTable) All() []TCB {
	out := make([]TCB, 0, len(t.tasks))
	for _, tcb := range t.tasks {
		out = append(out, tcb.Snapshot())
	}
	return out
}

// Len returns the total number of live tasks, across all states.
func (t *TaskTable) Len() int {
	return len(t.tasks)
}
