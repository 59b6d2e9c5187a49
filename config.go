package rtos

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SchedulerConfig holds the tunables recognized by the Scheduler, per
// spec.md §6.
type SchedulerConfig struct {
	// MaxTasks is an advisory cap on simultaneously live tasks; this
	// implementation treats it as informational only (spec.md §6).
	MaxTasks int `yaml:"maxTasks"`

	// TickRate is ticks per second of the scheduler. Must be > 0.
	TickRate float64 `yaml:"tickRate"`

	// StackSize is the default stack-size hint passed to TaskTable.Create
	// when a caller omits one.
	StackSize int `yaml:"stackSize"`

	// IdleTaskStackSize is the stack-size hint for the idle task.
	IdleTaskStackSize int `yaml:"idleTaskStackSize"`

	// IdleRestartBurst and IdleRestartWindow bound how many times the idle
	// task may be recreated after crashing within a rolling window before
	// the Kernel gives up and reports a fatal error (§4.6 addition).
	IdleRestartBurst  int           `yaml:"idleRestartBurst"`
	IdleRestartWindow time.Duration `yaml:"idleRestartWindow"`
}

// DefaultSchedulerConfig returns the SchedulerConfig used when none is
// supplied.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxTasks:          0, // 0 == no advisory cap
		TickRate:          100,
		StackSize:         4096,
		IdleTaskStackSize: 1024,
		IdleRestartBurst:  5,
		IdleRestartWindow: time.Second,
	}
}

func (c SchedulerConfig) validate() error {
	if c.TickRate <= 0 {
		return ErrInvalidTickRate
	}
	return nil
}

// LoadSchedulerConfig reads a SchedulerConfig from a YAML file at path.
// Fields absent from the file retain DefaultSchedulerConfig's values.
func LoadSchedulerConfig(path string) (SchedulerConfig, error) {
	cfg := DefaultSchedulerConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return SchedulerConfig{}, fmt.Errorf("rtos: read scheduler config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SchedulerConfig{}, fmt.Errorf("rtos: parse scheduler config: %w", err)
	}
	return cfg, nil
}
