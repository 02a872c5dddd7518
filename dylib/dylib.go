// Package dylib loads native libraries into the running process and calls
// entry points inside them.  Loaded libraries are never unloaded: code they
// run may still be executing in the background, so every handle stays open
// until the process exits.
package dylib

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned by Open on builds without dynamic loading.
var ErrUnsupported = errors.New("dynamic loading is not supported by this build")

// LoadFailure is returned when a library cannot be opened, eg. because it is
// malformed or one of its dependencies is missing.
type LoadFailure struct {
	Path    string
	Message string
}

func (lf *LoadFailure) Error() string {
	return "failed to load `" + lf.Path + "`: " + lf.Message
}

// SymbolNotFound is returned when a library does not export a symbol.
type SymbolNotFound struct {
	Path   string
	Symbol string
}

func (snf *SymbolNotFound) Error() string {
	return "symbol `" + snf.Symbol + "` not found in `" + snf.Path + "`"
}

// Library is an open native library.
type Library struct {
	path   string
	handle handle
}

// Path returns the path the library was opened from.
func (l *Library) Path() string {
	return l.path
}

// registry holds every library opened by the process.  It only grows.
var registry struct {
	m    sync.Mutex
	libs []*Library
}

func register(l *Library) {
	registry.m.Lock()
	defer registry.m.Unlock()

	registry.libs = append(registry.libs, l)
}

// Loaded returns the paths of all the libraries opened so far in the order
// they were opened.
func Loaded() []string {
	registry.m.Lock()
	defer registry.m.Unlock()

	paths := make([]string, len(registry.libs))
	for i, l := range registry.libs {
		paths[i] = l.path
	}

	return paths
}
