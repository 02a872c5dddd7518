package engine

import (
	"runtime"
	"sync"

	"rusti/report"
)

// State is the state of a monitor.
type State int

// Enumeration of monitor states.
const (
	Idle      State = iota // No evaluation has run yet.
	Running                // An evaluation is running.
	Completed              // The last evaluation returned normally.
	Recovered              // The last evaluation panicked and was recovered.
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Recovered:
		return "recovered"
	}

	return "unknown"
}

// RunResult is what the monitor observed of one run.
type RunResult struct {
	State State

	// Err is the error the work returned.  It is nil if the work panicked.
	Err error

	// Fault is the panic payload if the work panicked.
	Fault interface{}

	// Output is everything captured while the work ran.
	Output string
}

// Monitor runs work in isolation: on its own OS thread, with all diagnostic
// output captured, and with any panic recovered and classified.  A monitor
// runs one piece of work at a time.
type Monitor struct {
	captureNative bool

	m     sync.Mutex
	state State
}

// NewMonitor creates a new monitor.  If captureNative is set, output written
// to the standard error file descriptor by native code is captured as well.
func NewMonitor(captureNative bool) *Monitor {
	return &Monitor{captureNative: captureNative}
}

// State returns the current state of the monitor.
func (mon *Monitor) State() State {
	mon.m.Lock()
	defer mon.m.Unlock()

	return mon.state
}

func (mon *Monitor) setState(s State) {
	mon.m.Lock()
	defer mon.m.Unlock()

	mon.state = s
}

// workResult is sent by the worker once it finishes.
type workResult struct {
	err      error
	panicked bool
	payload  interface{}
}

// Run runs work and blocks until it finishes.  Run never panics itself: a
// panic of the work is recovered.  A panic with an already reported payload
// is dropped silently; any other payload is reported as an unexpected panic.
// The captured output is flushed whenever the work fails or panics, and after
// successful work only if warnings are displayed.
func (mon *Monitor) Run(work func() error) RunResult {
	mon.setState(Running)

	sink := report.NewSyncBuffer()
	restore := report.Capture(sink, mon.captureNative)

	done := make(chan workResult, 1)
	go func() {
		// never unlocked: the thread exits with the worker
		runtime.LockOSThread()

		var res workResult
		defer func() {
			if x := recover(); x != nil {
				res.panicked = true
				res.payload = x
			}

			done <- res
		}()

		res.err = work()
	}()

	res := <-done
	restore()

	rr := RunResult{Output: sink.String()}
	switch {
	case res.panicked:
		rr.State = Recovered
		rr.Fault = res.payload

		if !report.IsAlreadyReported(res.payload) {
			report.ReportUnexpectedPanic(res.payload)
		}
		report.Flush(sink)
	case res.err != nil:
		rr.State = Completed
		rr.Err = res.err
		report.Flush(sink)
	default:
		rr.State = Completed
		if report.LogLevel() >= report.LogLevelWarn {
			report.Flush(sink)
		}
	}

	mon.setState(rr.State)
	return rr
}
