//go:build !cgo || !(linux || darwin || freebsd)
// +build !cgo !linux,!darwin,!freebsd

package dylib

type handle = struct{}

// Open always fails with ErrUnsupported.
func Open(path string) (*Library, error) {
	return nil, ErrUnsupported
}

// Call always fails with ErrUnsupported.
func (l *Library) Call(symbol string) (int, error) {
	return 0, ErrUnsupported
}
