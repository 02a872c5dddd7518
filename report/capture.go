package report

import (
	"bytes"
	"sync"
)

// SyncBuffer is an in-memory diagnostic sink.  It is written by the worker of
// an evaluation and read by the controller once the worker has finished.
type SyncBuffer struct {
	m   sync.Mutex
	buf bytes.Buffer
}

// NewSyncBuffer creates a new, empty sync buffer.
func NewSyncBuffer() *SyncBuffer {
	return &SyncBuffer{}
}

func (sb *SyncBuffer) Write(p []byte) (int, error) {
	sb.m.Lock()
	defer sb.m.Unlock()

	return sb.buf.Write(p)
}

// Bytes returns a copy of the buffered output.
func (sb *SyncBuffer) Bytes() []byte {
	sb.m.Lock()
	defer sb.m.Unlock()

	return append([]byte(nil), sb.buf.Bytes()...)
}

// String returns the buffered output as a string.
func (sb *SyncBuffer) String() string {
	return string(sb.Bytes())
}

// Len returns the number of buffered bytes.
func (sb *SyncBuffer) Len() int {
	sb.m.Lock()
	defer sb.m.Unlock()

	return sb.buf.Len()
}

// -----------------------------------------------------------------------------

// Capture replaces the global diagnostic sink with the given buffer until the
// returned restore function is called.  If native is set, everything written
// to the process's standard error file descriptor is captured as well.  The
// restore function always reinstates the previous sink and may be called
// more than once.  At the debug log level nothing is captured.
func Capture(sink *SyncBuffer, native bool) (restore func()) {
	rep.m.Lock()
	if rep.logLevel >= LogLevelDebug {
		rep.m.Unlock()
		return func() {}
	}

	prev := rep.out
	rep.out = sink
	rep.m.Unlock()

	var stopNative func()
	if native {
		stop, err := redirectStderr(sink)
		if err == nil {
			stopNative = stop
		} else {
			ReportVerbose("native output is not captured: %s", err)
		}
	}

	once := &sync.Once{}
	return func() {
		once.Do(func() {
			if stopNative != nil {
				stopNative()
			}

			rep.m.Lock()
			rep.out = prev
			rep.m.Unlock()
		})
	}
}

// Flush writes captured output to the current sink.  It is called after the
// capture has been restored so the output reaches the user.
func Flush(sink *SyncBuffer) {
	data := sink.Bytes()
	if len(data) == 0 {
		return
	}

	rep.m.Lock()
	defer rep.m.Unlock()

	if rep.logLevel > LogLevelSilent {
		rep.out.Write(data)
	}
}
