package engine

import (
	"context"
	"fmt"

	"rusti/driver"
)

// OutcomeKind tells what a successful compilation produced.
type OutcomeKind int

// Enumeration of outcome kinds.
const (
	OutcomeLibrary OutcomeKind = iota // A loadable library on disk.
	OutcomeTyped                      // An analyzed program, nothing to load.
)

// Outcome is the result of a successful compilation.
type Outcome struct {
	Kind OutcomeKind

	// Path is the library produced for OutcomeLibrary.
	Path string

	// Program is the analyzed program produced for OutcomeTyped.
	Program *driver.Program
}

// FailureKind classifies compile failures.
type FailureKind int

// Enumeration of failure kinds.
const (
	ToolchainRejected FailureKind = iota // The compiler refused the unit.
)

// CompileFailure is returned when the compiler does not accept a unit.  The
// user may correct the unit and retry the same generation.
type CompileFailure struct {
	Kind FailureKind

	// Output is everything the compiler printed.
	Output string

	// ExitCode is -1 if the compiler could not be launched at all.
	ExitCode int

	Err error
}

func (cf *CompileFailure) Error() string {
	if cf.ExitCode < 0 {
		return fmt.Sprintf("failed to launch compiler: %s", cf.Err)
	}

	return fmt.Sprintf("compiler exited with status %d", cf.ExitCode)
}

func (cf *CompileFailure) Unwrap() error {
	return cf.Err
}

// Compiler compiles units.  Implementations must produce arguments through
// BuildOptions so both strategies agree on what a unit means.
type Compiler interface {
	Compile(ctx context.Context, u *CompilationUnit) (Outcome, error)
}
