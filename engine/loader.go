package engine

import (
	"fmt"

	"rusti/dylib"
)

// Loader loads an artifact into the process and calls its entry symbol.
type Loader interface {
	LoadAndCall(path, symbol string) error
}

// EntryPanic is the panic payload raised when an invoked entry point faults.
// It is not one of the already reported fault kinds: the monitor reports it.
type EntryPanic struct {
	Path   string
	Symbol string
	Status int
}

func (ep *EntryPanic) Error() string {
	return fmt.Sprintf("`%s` in `%s` panicked (status %d)", ep.Symbol, ep.Path, ep.Status)
}

func (ep *EntryPanic) String() string {
	return ep.Error()
}

// DynamicLoader is the Loader built on the platform dynamic loader.  Loaded
// libraries are never unloaded.
type DynamicLoader struct{}

// LoadAndCall implements Loader.  A non-zero status from the entry point
// means the invoked code panicked: LoadAndCall panics in turn with an
// *EntryPanic so the fault surfaces through the monitor.
func (DynamicLoader) LoadAndCall(path, symbol string) error {
	lib, err := dylib.Open(path)
	if err != nil {
		return err
	}

	status, err := lib.Call(symbol)
	if err != nil {
		return err
	}

	if status != 0 {
		panic(&EntryPanic{Path: path, Symbol: symbol, Status: status})
	}

	return nil
}
