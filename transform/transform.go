package transform

import (
	"fmt"

	"github.com/dop251/goja"
)

// Factory produces a fresh RestartableUnit for each task instance created
// from the same analyzed-and-rewritten source. The AST parse, analysis and
// (if statement-level mode) rewrite happen once, in Build; New only has to
// spin up a fresh *goja.Runtime per task instance and re-run the already
// compiled *goja.Program against it.
type Factory struct {
	prog      *goja.Program
	fnName    string
	paramName string
	trivial   bool
}

// Build parses source, analyzes it per spec.md §4.1, and -- in
// ModeStatementLevel -- rewrites it to insert a suspension point after
// every top-level statement of the body function. It returns a Factory
// that can instantiate as many independent RestartableUnits as needed (one
// per task), plus any non-fatal Diagnostics produced along the way.
//
// A body with no receiver-qualified delay/delayMs calls (step 2/3 of
// spec.md §4.1) produces a "trivial" Factory, whose units run the body
// synchronously to completion on their first Step and never suspend. In
// ModeStatementLevel this applies only when the body has bare (unqualified)
// delay/delayMs calls; a body with no delay calls at all is still rewritten
// and suspends after each top-level statement.
func Build(source string, mode Mode) (*Factory, []Diagnostic, error) {
	a, err := analyze(source)
	if err != nil {
		return nil, nil, &BuildError{Cause: err}
	}

	trivial := a.qualifiedDelayCount == 0 && (mode == ModeDelayOnly || a.bareDelayCount > 0)

	finalSource := source
	if mode == ModeStatementLevel && !trivial {
		finalSource = rewriteStatementLevel(a)
	}

	prog, err := goja.Compile("task.js", finalSource, false)
	if err != nil {
		return nil, a.diagnostics, &BuildError{
			Diagnostics: a.diagnostics,
			Cause:       fmt.Errorf("compile task body: %w", err),
		}
	}

	return &Factory{
		prog:      prog,
		fnName:    a.fnName,
		paramName: a.paramName,
		trivial:   trivial,
	}, a.diagnostics, nil
}

// locate finds the callable function the program produced: either the
// completion value of running it (an anonymous function expression) or, for
// a named function declaration (whose completion value is undefined), the
// global binding of that name.
func (f *Factory) locate(rt *goja.Runtime, completion goja.Value) (goja.Callable, error) {
	if fn, ok := goja.AssertFunction(completion); ok {
		return fn, nil
	}
	if f.fnName != "" {
		if fn, ok := goja.AssertFunction(rt.GlobalObject().Get(f.fnName)); ok {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("task body did not evaluate to a callable function")
}

func bindAmbientGlobals(rt *goja.Runtime, rates RateProvider, stmtYield func(*DelayMarker) *DelayMarker) {
	_ = rt.Set("delay", func(n int64) *DelayMarker { return newDelayMarker(n) })
	_ = rt.Set("delayMs", func(ms int64) *DelayMarker { return newDelayMsMarker(ms, rates.TickRate()) })
	if stmtYield != nil {
		_ = rt.Set(suspendMarker, func() { stmtYield(nil) })
	}
}

// New constructs a fresh restartable unit bound to one task instance.
func (f *Factory) New(handle int64, name string, params any, rates RateProvider) (RestartableUnit, error) {
	run := func(suspend func(*DelayMarker) *DelayMarker) error {
		rt := goja.New()
		rt.SetFieldNameMapper(goja.UncapFieldNameMapper())
		ctx := &TaskContext{
			handle:  handle,
			name:    name,
			params:  params,
			rates:   rates,
			suspend: suspend,
		}

		var stmtYield func(*DelayMarker) *DelayMarker
		if !f.trivial {
			stmtYield = suspend
		}
		bindAmbientGlobals(rt, rates, stmtYield)

		completion, err := rt.RunProgram(f.prog)
		if err != nil {
			return err
		}
		fn, err := f.locate(rt, completion)
		if err != nil {
			return err
		}
		_, err = fn(goja.Undefined(), rt.ToValue(ctx))
		return err
	}

	if f.trivial {
		noSuspend := func(m *DelayMarker) *DelayMarker { return m }
		return &trivialUnit{run: func() error { return run(noSuspend) }}, nil
	}

	u := newGoroutineUnit(nil)
	u.run = run
	return u, nil
}
