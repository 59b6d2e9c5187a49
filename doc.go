// Package rtos implements a cooperative, tick-driven real-time task
// scheduler modeled after a pared-down FreeRTOS.
//
// A Kernel owns a TaskTable, a ReadyQueue and a tick driver. Task bodies are
// authored as JavaScript-family source text; the transform subpackage turns
// a body's delay(n) calls (and, optionally, every top-level statement) into
// suspension points of a restartable unit, which the Scheduler advances one
// step per tick.
package rtos
