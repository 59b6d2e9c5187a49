// Package transform turns a user-authored, JavaScript-family task body into
// a restartable unit: a value whose Step method advances the body's logical
// execution to its next suspension point, or to completion.
//
// Two transformation modes are supported (see Mode): delay-only, where the
// only suspension points are calls to the receiver's delay/delayMs methods,
// and statement-level, where every top-level statement of the body is
// additionally a suspension point.
//
// Suspension is realized by running the (optionally rewritten) body on a
// dedicated goroutine hosting its own *goja.Runtime*, coordinating with the
// caller of Step over a pair of channels -- see unit.go.
package transform
