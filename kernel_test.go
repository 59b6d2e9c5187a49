package rtos

import (
	"errors"
	"testing"
	"time"

	"github.com/joeycumines/go-rtos/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKernel(t *testing.T, opts ...KernelOption) *Kernel {
	t.Helper()
	cfg := DefaultSchedulerConfig()
	cfg.TickRate = 100
	k, err := NewKernel(cfg, opts...)
	require.NoError(t, err)
	return k
}

func TestNewKernel_RejectsInvalidTickRate(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.TickRate = 0
	_, err := NewKernel(cfg)
	assert.ErrorIs(t, err, ErrInvalidTickRate)
}

func TestKernel_CreateTask_DefaultNameSequence(t *testing.T) {
	k := newTestKernel(t)
	h1, err := k.CreateTask(`(function(task) { task.x = 1; })`, 1, 0, nil, "")
	require.NoError(t, err)
	h2, err := k.CreateTask(`(function(task) { task.x = 1; })`, 1, 0, nil, "")
	require.NoError(t, err)

	info1, ok := k.GetTaskInfo(h1)
	require.True(t, ok)
	info2, ok := k.GetTaskInfo(h2)
	require.True(t, ok)
	assert.Equal(t, "Task_1", info1.Name)
	assert.Equal(t, "Task_2", info2.Name)
}

func TestKernel_CreateTask_TransformFailureOnBadSource(t *testing.T) {
	k := newTestKernel(t)
	_, err := k.CreateTask(`function( {{{`, 1, 0, nil, "bad")
	require.Error(t, err)
	var tf *TransformFailure
	assert.ErrorAs(t, err, &tf)
}

func TestKernel_CreateTask_RecordsDiagnosticsForBareDelay(t *testing.T) {
	k := newTestKernel(t)
	h, err := k.CreateTask(`(function(task) { delay(2); })`, 1, 0, nil, "t")
	require.NoError(t, err)
	diags := k.LastDiagnostics(h)
	require.Len(t, diags, 1)
}

func TestKernel_DeleteSuspendResumeSetPriority(t *testing.T) {
	k := newTestKernel(t)
	h, err := k.CreateTask(`(function(task) { task.delay(100); })`, 1, 0, nil, "t")
	require.NoError(t, err)

	require.True(t, k.SuspendTask(h))
	info, ok := k.GetTaskInfo(h)
	require.True(t, ok)
	assert.Equal(t, StateSuspended, info.State)

	require.True(t, k.ResumeTask(h))
	info, _ = k.GetTaskInfo(h)
	assert.Equal(t, StateReady, info.State)

	require.True(t, k.SetTaskPriority(h, 42))
	info, _ = k.GetTaskInfo(h)
	assert.Equal(t, 42, info.Priority)

	require.True(t, k.DeleteTask(h))
	_, ok = k.GetTaskInfo(h)
	assert.False(t, ok)

	assert.False(t, k.DeleteTask(h))
}

func TestKernel_TickEndToEndDelayAndCompletion(t *testing.T) {
	k := newTestKernel(t)
	h, err := k.CreateTask(`(function(task) { task.delay(2); task.delay(0); })`, 10, 0, nil, "t")
	require.NoError(t, err)

	require.NoError(t, k.Tick()) // runs, blocks for 2 ticks
	info, _ := k.GetTaskInfo(h)
	assert.Equal(t, StateBlocked, info.State)

	require.NoError(t, k.Tick()) // delayTicks: 2 -> 1
	info, _ = k.GetTaskInfo(h)
	assert.Equal(t, StateBlocked, info.State)

	require.NoError(t, k.Tick()) // delayTicks: 1 -> 0, unblocks, runs final delay(0) (plain yield)
	require.NoError(t, k.Tick()) // completes
	_, ok := k.GetTaskInfo(h)
	assert.False(t, ok)
}

func TestKernel_GetSystemStatus(t *testing.T) {
	k := newTestKernel(t)
	_, err := k.CreateTask(`(function(task) { task.delay(50); })`, 5, 0, nil, "t")
	require.NoError(t, err)

	status := k.GetSystemStatus()
	assert.False(t, status.IsRunning)
	assert.Equal(t, 2, status.TotalTasks) // the task + idle
	assert.Equal(t, 2, status.ReadyTasks)

	require.NoError(t, k.Tick())
	status = k.GetSystemStatus()
	assert.False(t, status.HasCurrentTask) // the task blocked before the tick ended
	assert.Equal(t, 1, status.BlockedTasks)
}

func TestKernel_StartStopIsIdempotent(t *testing.T) {
	k := newTestKernel(t)
	k.Start()
	k.Start() // no-op
	assert.True(t, k.GetSystemStatus().IsRunning)

	k.Stop()
	k.Stop() // no-op
	assert.False(t, k.GetSystemStatus().IsRunning)
}

func TestKernel_IdleHandleIsStableAcrossTicks(t *testing.T) {
	k := newTestKernel(t)

	require.NoError(t, k.Tick())
	first := k.GetSystemStatus()
	require.True(t, first.HasCurrentTask)
	idleHandle := first.CurrentTask

	for i := 0; i < 5; i++ {
		require.NoError(t, k.Tick())
		cur := k.GetSystemStatus()
		require.True(t, cur.HasCurrentTask)
		assert.Equal(t, idleHandle, cur.CurrentTask, "idle handle churned on tick %d", i+2)
	}

	info, ok := k.GetTaskInfo(idleHandle)
	require.True(t, ok)
	assert.Equal(t, StateRunning, info.State)
}

// TestKernel_StartClearsRunningFlagOnFatalTickError exercises the Start
// goroutine's exit path directly (bypassing NewKernel's real idle factory,
// which never errors) by wiring a Scheduler whose idle task always crashes.
func TestKernel_StartClearsRunningFlagOnFatalTickError(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.TickRate = 1000
	cfg.IdleRestartBurst = 1
	cfg.IdleRestartWindow = time.Minute

	crashingIdle := func() (transform.RestartableUnit, error) {
		return transform.NewPersistentUnit(func() error { return errors.New("idle boom") }), nil
	}
	sched, err := NewScheduler(cfg, fakeRateProvider{hz: cfg.TickRate}, crashingIdle)
	require.NoError(t, err)

	k := &Kernel{cfg: cfg, opt: resolveKernelOptions(nil), sched: sched}

	k.Start()
	require.Eventually(t, func() bool {
		return !k.GetSystemStatus().IsRunning
	}, time.Second, time.Millisecond, "IsRunning should clear itself once the tick driver exits fatally")

	assert.ErrorIs(t, sched.FatalErr(), ErrIdleTaskCrashLoop)
}

func TestKernel_YieldModeToggle(t *testing.T) {
	k := newTestKernel(t)
	assert.False(t, k.GetYieldMode())
	k.SetYieldMode(true)
	assert.True(t, k.GetYieldMode())
}

func TestKernel_WithYieldAllStatementsOption(t *testing.T) {
	k := newTestKernel(t, WithYieldAllStatements(true))
	assert.True(t, k.GetYieldMode())

	h, err := k.CreateTask(`(function(task) { var x = 1; })`, 10, 0, nil, "t")
	require.NoError(t, err)

	require.NoError(t, k.Tick())
	info, ok := k.GetTaskInfo(h)
	require.True(t, ok)
	assert.Equal(t, StateRunning, info.State)

	require.NoError(t, k.Tick())
	_, ok = k.GetTaskInfo(h)
	assert.False(t, ok)
}

func TestKernel_DelayMsConversion(t *testing.T) {
	k := newTestKernel(t)
	m := k.DelayMs(250)
	assert.EqualValues(t, 25, m.DelayTicks) // ceil(250 * 100 / 1000) = 25
}

func TestKernel_WithLoggerOptionInstallsGlobalLogger(t *testing.T) {
	original := logger()
	defer SetLogger(original)

	custom := defaultLogger()
	_ = newTestKernel(t, WithLogger(custom))
	assert.Same(t, custom, logger())
}

func TestKernel_GetAllTasks(t *testing.T) {
	k := newTestKernel(t)
	_, err := k.CreateTask(`(function(task) { task.delay(10); })`, 1, 0, nil, "t")
	require.NoError(t, err)
	all := k.GetAllTasks()
	assert.Len(t, all, 2) // task + idle
}
