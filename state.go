package rtos

// TaskState is one of the four lifecycle states a task may occupy.
//
// State Machine:
//
//	(new) ──create──▶ READY ───────pick───────▶ RUNNING
//	         ▲ │                                  │
//	resume ──┘ │ suspend                  suspend │
//	          ▼                                   │
//	      SUSPENDED                               │
//	          ▲                                   │
//	unblock   │           block(delay)            │
//	     ┌────┴───────────────────────────────────┘
//	     │
//	   BLOCKED
//
// RUNNING additionally transitions to "deleted" when its restartable unit
// completes; that is not a TaskState value, the task simply ceases to exist.
type TaskState int32

const (
	// StateReady indicates the task is eligible for selection by the
	// scheduler and is a member of the ReadyQueue.
	StateReady TaskState = iota
	// StateRunning indicates the task is the one currently being advanced.
	// A RUNNING task is logically absent from the ready set for the
	// duration of that advance.
	StateRunning
	// StateBlocked indicates the task is waiting on something (currently
	// only a tick-count delay) and is a member of the blocked set.
	StateBlocked
	// StateSuspended indicates the task has been administratively taken out
	// of scheduling consideration and is a member of the suspended set.
	StateSuspended
)

// String returns a human-readable representation of the state.
func (s TaskState) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	case StateSuspended:
		return "SUSPENDED"
	default:
		return "UNKNOWN"
	}
}

// BlockReason tags why a task is in StateBlocked.
type BlockReason int32

const (
	// BlockReasonNone is the zero value; never observed on a blocked task.
	BlockReasonNone BlockReason = iota
	// BlockReasonDelay is the only block reason this spec defines: the task
	// is waiting for delayTicks to reach zero.
	BlockReasonDelay
)

// String returns a human-readable representation of the block reason.
func (r BlockReason) String() string {
	switch r {
	case BlockReasonDelay:
		return "delay"
	default:
		return "none"
	}
}
