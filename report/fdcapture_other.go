//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package report

import (
	"io"

	"github.com/pkg/errors"
)

func redirectStderr(w io.Writer) (func(), error) {
	return nil, errors.New("not supported on this platform")
}
