// Package testenv wires the loop simulator into a per-test environment: it
// prepares the main loop, optionally starts the monitoring server and the
// dispatch tracer, and owns the teardown that runs at every test boundary.
package testenv

import (
	"github.com/loopsim/loopsim/loop"
	"github.com/loopsim/loopsim/monitoring"
	"github.com/loopsim/loopsim/tracerecording"
)

// An Env provides the services required to drive simulated loops in a test.
type Env struct {
	main     *loop.Loop
	monitor  *monitoring.Monitor
	recorder tracerecording.TraceRecorder
	tracer   *tracerecording.DispatchTracer
}

// MainLoop returns the main loop, bound to the goroutine that built the
// environment.
func (e *Env) MainLoop() *loop.Loop {
	return e.main
}

// Monitor returns the monitoring server, or nil when monitoring is
// disabled.
func (e *Env) Monitor() *monitoring.Monitor {
	return e.monitor
}

// NewLoop creates a quit-allowed loop tracked for teardown. The dispatch
// tracer, when enabled, observes it as well.
func (e *Env) NewLoop(name string) *loop.Loop {
	l := loop.NewLoop(name, true)

	if e.tracer != nil {
		l.AcceptHook(e.tracer)
	}

	return l
}

// Reset is the per-test teardown entry point. Quit-allowed loops are
// discarded, the main loop keeps running with an empty queue bound to the
// calling goroutine, and the clock returns to the epoch.
func (e *Env) Reset() {
	loop.ResetAll()
	loop.GetClock().Reset()
	e.main.BindToCurrentGoroutine()
}

// Terminate flushes the dispatch trace and stops the monitoring server.
// Call it once after the last test.
func (e *Env) Terminate() {
	if e.recorder != nil {
		e.recorder.Flush()
	}

	if e.monitor != nil {
		e.monitor.StopServer()
	}
}

// prepareOrAdoptMainLoop makes the calling goroutine the owner of the main
// loop, preparing it first if no test has run yet in this process.
func prepareOrAdoptMainLoop() *loop.Loop {
	main := loop.MainLoop()
	if main == nil {
		return loop.PrepareMainLoop()
	}

	main.BindToCurrentGoroutine()

	return main
}
