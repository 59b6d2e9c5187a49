package rtos

import (
	"github.com/joeycumines/go-rtos/transform"
	"github.com/joeycumines/logiface"
)

// kernelOptions holds configuration for Kernel creation, beyond what
// SchedulerConfig covers, per spec.md §6's "Kernel options" table.
type kernelOptions struct {
	mode   transform.Mode
	logger *logiface.Logger[logiface.Event]
}

// KernelOption configures a Kernel instance.
type KernelOption interface {
	applyKernel(*kernelOptions)
}

type kernelOptionImpl struct {
	applyKernelFunc func(*kernelOptions)
}

func (k *kernelOptionImpl) applyKernel(opts *kernelOptions) {
	k.applyKernelFunc(opts)
}

// WithYieldAllStatements selects the Transformer's statement-level mode
// when enabled (every top-level statement of a task body becomes a
// suspension point); the default, delay-only mode only suspends at
// receiver-qualified delay/delayMs calls.
func WithYieldAllStatements(enabled bool) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) {
		if enabled {
			opts.mode = transform.ModeStatementLevel
		} else {
			opts.mode = transform.ModeDelayOnly
		}
	}}
}

// WithLogger overrides the Kernel's structured logger. A nil logger is
// equivalent to not supplying this option (the package default is used).
func WithLogger(l *logiface.Logger[logiface.Event]) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) {
		opts.logger = l
	}}
}

// resolveKernelOptions applies KernelOption instances to kernelOptions.
func resolveKernelOptions(opts []KernelOption) *kernelOptions {
	cfg := &kernelOptions{mode: transform.ModeDelayOnly}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyKernel(cfg)
	}
	return cfg
}
