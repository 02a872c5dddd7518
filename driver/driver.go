// Package driver is the in-process compiler front end.  It parses a
// compilation unit, analyzes its top-level items and, if asked to continue,
// translates it into a crate translation ready to be linked.  Source is read
// through an injected file loader so that units may live only in memory.
package driver

import (
	"context"
	"os"

	"rusti/report"

	"github.com/pkg/errors"
)

// Extern is a dependency declaration: the crate name and the artifact it
// resolves to.
type Extern struct {
	Name string
	Path string
}

// Options are the structured equivalent of the external compiler's command
// line arguments.
type Options struct {
	Sysroot     string
	SearchPaths []string
	CrateName   string

	// CrateType is either `lib` or `dylib`.
	CrateType string
	Externs   []Extern

	Input  string
	Output string

	OptLevel         int
	UnstableFeatures bool
}

// FileLoader is the file system the front end reads source through.
type FileLoader interface {
	FileExists(path string) bool
	ReadFile(path string) (string, error)
}

// RealFiles is the FileLoader that reads from disk.
type RealFiles struct{}

// FileExists implements FileLoader.
func (RealFiles) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile implements FileLoader.
func (RealFiles) ReadFile(path string) (string, error) {
	buf, err := os.ReadFile(path)
	return string(buf), err
}

// Compilation tells the driver whether to keep going after a callback.
type Compilation int

// Enumeration of compilation controls.
const (
	Stop Compilation = iota
	Continue
)

// Callbacks are the hooks the driver calls between its phases.  Nil callbacks
// continue the compilation.
type Callbacks struct {
	// AfterAnalysis is called with the analyzed program before translation.
	AfterAnalysis func(prog *Program) Compilation
}

// Driver runs the front end.  A driver holds no state between runs.
type Driver struct{}

// New creates a new driver.
func New() *Driver {
	return &Driver{}
}

// Run compiles the input named by opts.  Syntax and semantic errors are
// reported and then abort the run by panicking with report.FatalError:
// callers must run the driver under a monitor that recovers it.  Other errors
// (eg. an unreadable input) are returned.
func (d *Driver) Run(ctx context.Context, opts Options, files FileLoader, cb *Callbacks) error {
	if files == nil {
		files = RealFiles{}
	}

	if cb == nil {
		cb = &Callbacks{}
	}

	if opts.UnstableFeatures {
		return errors.New("unstable features are not supported by the in-process front end")
	}

	if !files.FileExists(opts.Input) {
		return errors.Errorf("input file `%s` does not exist", opts.Input)
	}

	src, err := files.ReadFile(opts.Input)
	if err != nil {
		return errors.Wrapf(err, "reading `%s`", opts.Input)
	}

	st, err := parse([]byte(src))
	if err != nil {
		return err
	}
	defer st.close()

	if n := st.reportSyntaxErrors(opts.Input); n > 0 {
		report.ReportVerbose("%d syntax errors in `%s`", n, opts.Input)
	}
	report.AbortIfErrors()

	if err := ctx.Err(); err != nil {
		return err
	}

	prog := st.analyze(opts.Input, opts)
	report.AbortIfErrors()
	report.ReportDebug("analyzed "+opts.CrateName, prog.Items)

	if cb.AfterAnalysis != nil && cb.AfterAnalysis(prog) == Stop {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	prog.Translation, err = translate(prog, opts)
	return err
}
