package rtos

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchedulerConfig_Valid(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	assert.NoError(t, cfg.validate())
	assert.Greater(t, cfg.TickRate, 0.0)
}

func TestSchedulerConfig_ValidateRejectsNonPositiveTickRate(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.TickRate = 0
	assert.ErrorIs(t, cfg.validate(), ErrInvalidTickRate)

	cfg.TickRate = -1
	assert.ErrorIs(t, cfg.validate(), ErrInvalidTickRate)
}

func TestLoadSchedulerConfig_ReadsYAMLOverridingDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tickRate: 50
stackSize: 2048
idleRestartBurst: 2
idleRestartWindow: 500ms
`), 0o644))

	cfg, err := LoadSchedulerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfg.TickRate)
	assert.Equal(t, 2048, cfg.StackSize)
	assert.Equal(t, 2, cfg.IdleRestartBurst)
	assert.Equal(t, 500*time.Millisecond, cfg.IdleRestartWindow)
	// fields not present in the file keep their defaults.
	assert.Equal(t, DefaultSchedulerConfig().IdleTaskStackSize, cfg.IdleTaskStackSize)
}

func TestLoadSchedulerConfig_MissingFile(t *testing.T) {
	_, err := LoadSchedulerConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
