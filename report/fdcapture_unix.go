//go:build linux || darwin || freebsd || netbsd || openbsd

package report

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// drainTimeout bounds how long restoring waits for the pipe reader: a
// process spawned by invoked code may still hold the write end.
const drainTimeout = 200 * time.Millisecond

// redirectStderr points file descriptor 2 at a pipe whose contents are copied
// into w.  The returned function restores the original descriptor.
func redirectStderr(w io.Writer) (func(), error) {
	saved, err := unix.Dup(unix.Stderr)
	if err != nil {
		return nil, errors.Wrap(err, "duplicating stderr")
	}

	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		unix.Close(saved)
		return nil, errors.Wrap(err, "creating capture pipe")
	}

	if err := unix.Dup2(fds[1], unix.Stderr); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		unix.Close(saved)
		return nil, errors.Wrap(err, "redirecting stderr")
	}
	unix.Close(fds[1])

	r := os.NewFile(uintptr(fds[0]), "rusti-stderr")
	done := make(chan struct{})
	go func() {
		io.Copy(w, r)
		r.Close()
		close(done)
	}()

	return func() {
		// Reinstating the saved descriptor closes the last write end we own.
		unix.Dup2(saved, unix.Stderr)
		unix.Close(saved)

		select {
		case <-done:
		case <-time.After(drainTimeout):
		}
	}, nil
}
