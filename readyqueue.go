package rtos

// ReadyQueue holds the handles of READY tasks in non-increasing priority
// order; among equal priorities, insertion order is preserved (stable), per
// spec.md §3 invariant 5 and §4.3.
type ReadyQueue struct {
	entries []int64
	priority map[int64]int
}

// NewReadyQueue returns an empty ReadyQueue.
func NewReadyQueue() *ReadyQueue {
	return &ReadyQueue{priority: make(map[int64]int)}
}

// Insert adds handle at the given priority: before the first existing entry
// of strictly lower priority, or at the end if none exists. Stable among
// equal priorities (appended after existing same-priority entries) -- which
// is also exactly what round-robin rotation needs, so the Scheduler uses
// this same method both for a newly-readied task and for a yielding task
// rejoining the tail of its own priority band (spec.md §4.3/§4.4).
func (q *ReadyQueue) Insert(handle int64, priority int) {
	q.priority[handle] = priority
	for i, h := range q.entries {
		if q.priority[h] < priority {
			q.entries = append(q.entries, 0)
			copy(q.entries[i+1:], q.entries[i:])
			q.entries[i] = handle
			return
		}
	}
	q.entries = append(q.entries, handle)
}

// Remove deletes handle from the queue, if present. Returns true if it was
// present.
func (q *ReadyQueue) Remove(handle int64) bool {
	for i, h := range q.entries {
		if h == handle {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			delete(q.priority, handle)
			return true
		}
	}
	return false
}

// Head returns the highest-priority, oldest-in-band handle without removing
// it, or (0, false) if the queue is empty.
func (q *ReadyQueue) Head() (int64, bool) {
	if len(q.entries) == 0 {
		return 0, false
	}
	return q.entries[0], true
}

// Len returns the number of ready handles.
func (q *ReadyQueue) Len() int { return len(q.entries) }

// Contains reports whether handle is currently enqueued.
func (q *ReadyQueue) Contains(handle int64) bool {
	_, ok := q.priority[handle]
	return ok
}

// Handles returns a snapshot slice of the queue contents, head first.
func (q *ReadyQueue) Handles() []int64 {
	out := make([]int64, len(q.entries))
	copy(out, q.entries)
	return out
}
