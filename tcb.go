package rtos

import (
	"time"

	"github.com/joeycumines/go-rtos/transform"
)

// TCB is the Task Control Block: the essential, introspectable state of a
// single task, per spec.md §3.
type TCB struct {
	Handle    int64
	Name      string
	Priority  int
	State     TaskState
	BlockedOn BlockReason

	// DelayTicks is only meaningful while State == StateBlocked and
	// BlockedOn == BlockReasonDelay.
	DelayTicks int

	StackHint int
	Params    any

	CreatedAt  time.Time
	LastRanAt  time.Time
	RunCount   int64

	unit transform.RestartableUnit
}

// Snapshot returns a copy of the TCB safe to hand to callers without letting
// them reach the live restartableUnit.
func (t *TCB) Snapshot() TCB {
	cp := *t
	cp.unit = nil
	return cp
}
