package rtos

import (
	"testing"

	"github.com/joeycumines/go-rtos/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUnit struct{}

func (stubUnit) Step() transform.StepResult { return transform.StepResult{Done: true} }

func TestTaskTable_CreateAssignsIncreasingHandles(t *testing.T) {
	tt := NewTaskTable()
	h1 := tt.Create("a", stubUnit{}, 1, 0, nil)
	h2 := tt.Create("b", stubUnit{}, 1, 0, nil)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, StateReady, tt.Get(h1).State)
	assert.Equal(t, 2, tt.Len())
}

func TestTaskTable_DeleteUnknownHandle(t *testing.T) {
	tt := NewTaskTable()
	assert.False(t, tt.Delete(999))
}

func TestTaskTable_SuspendResumeRoundTrip(t *testing.T) {
	tt := NewTaskTable()
	h := tt.Create("a", stubUnit{}, 3, 0, nil)

	require.True(t, tt.Suspend(h))
	assert.Equal(t, StateSuspended, tt.Get(h).State)
	assert.False(t, tt.ready.Contains(h))

	// Already suspended: second suspend fails.
	assert.False(t, tt.Suspend(h))

	require.True(t, tt.Resume(h))
	assert.Equal(t, StateReady, tt.Get(h).State)
	assert.True(t, tt.ready.Contains(h))
	assert.Equal(t, 3, tt.Get(h).Priority)
}

func TestTaskTable_ResumeNonSuspendedFails(t *testing.T) {
	tt := NewTaskTable()
	h := tt.Create("a", stubUnit{}, 1, 0, nil)
	assert.False(t, tt.Resume(h))
}

func TestTaskTable_BlockUnblock(t *testing.T) {
	tt := NewTaskTable()
	h := tt.Create("a", stubUnit{}, 1, 0, nil)

	require.True(t, tt.Block(h, BlockReasonDelay))
	assert.Equal(t, StateBlocked, tt.Get(h).State)
	assert.Equal(t, BlockReasonDelay, tt.Get(h).BlockedOn)

	tt.Get(h).DelayTicks = 5

	require.True(t, tt.Unblock(h))
	assert.Equal(t, StateReady, tt.Get(h).State)
	assert.Equal(t, BlockReasonNone, tt.Get(h).BlockedOn)
	assert.Equal(t, 0, tt.Get(h).DelayTicks)
}

func TestTaskTable_BlockIllegalFromSuspended(t *testing.T) {
	tt := NewTaskTable()
	h := tt.Create("a", stubUnit{}, 1, 0, nil)
	require.True(t, tt.Suspend(h))
	assert.False(t, tt.Block(h, BlockReasonDelay))
}

func TestTaskTable_SetPriorityReinsertsWhenReady(t *testing.T) {
	tt := NewTaskTable()
	low := tt.Create("low", stubUnit{}, 1, 0, nil)
	high := tt.Create("high", stubUnit{}, 1, 0, nil)

	require.True(t, tt.SetPriority(low, 100))
	h, _ := tt.NextReady()
	assert.Equal(t, low, h)
	_ = high
}

func TestTaskTable_SetPriorityOnBlockedOnlyUpdatesField(t *testing.T) {
	tt := NewTaskTable()
	h := tt.Create("a", stubUnit{}, 1, 0, nil)
	require.True(t, tt.Block(h, BlockReasonDelay))

	require.True(t, tt.SetPriority(h, 50))
	assert.Equal(t, 50, tt.Get(h).Priority)
	assert.False(t, tt.ready.Contains(h))

	require.True(t, tt.Unblock(h))
	assert.Equal(t, 50, tt.Get(h).Priority)
}

func TestTaskTable_RunningLifecycle(t *testing.T) {
	tt := NewTaskTable()
	h := tt.Create("a", stubUnit{}, 1, 0, nil)

	_, ok := tt.Running()
	assert.False(t, ok)

	require.True(t, tt.SetRunning(h))
	cur, ok := tt.Running()
	require.True(t, ok)
	assert.Equal(t, h, cur)
	assert.Equal(t, StateRunning, tt.Get(h).State)

	// Cannot re-run a task that's already RUNNING (not READY).
	assert.False(t, tt.SetRunning(h))

	tt.YieldCurrent()
	_, ok = tt.Running()
	assert.False(t, ok)
	assert.Equal(t, StateReady, tt.Get(h).State)
}

func TestTaskTable_DeleteRunningClearsSlot(t *testing.T) {
	tt := NewTaskTable()
	h := tt.Create("a", stubUnit{}, 1, 0, nil)
	require.True(t, tt.SetRunning(h))

	require.True(t, tt.Delete(h))
	_, ok := tt.Running()
	assert.False(t, ok)
	assert.Nil(t, tt.Get(h))
}
