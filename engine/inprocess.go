package engine

import (
	"context"
	"sync"

	"rusti/driver"
	"rusti/trans"

	"github.com/pkg/errors"
)

// Frontend is the in-process compiler driver.
type Frontend interface {
	Run(ctx context.Context, opts driver.Options, files driver.FileLoader, cb *driver.Callbacks) error
}

// resultSlot receives the program captured by the analysis callback.
type resultSlot struct {
	m    sync.Mutex
	prog *driver.Program
}

func (rs *resultSlot) set(prog *driver.Program) {
	rs.m.Lock()
	defer rs.m.Unlock()

	rs.prog = prog
}

func (rs *resultSlot) get() *driver.Program {
	rs.m.Lock()
	defer rs.m.Unlock()

	return rs.prog
}

// InProcessCompiler compiles units with the in-process front end.  The unit's
// text is served from memory and compilation stops after analysis: the
// outcome is the analyzed program, never a library.
type InProcessCompiler struct {
	Frontend Frontend
	env      buildEnv
}

// NewInProcessCompiler creates an in-process compiler using fe.
func NewInProcessCompiler(fe Frontend, env buildEnv) *InProcessCompiler {
	return &InProcessCompiler{Frontend: fe, env: env}
}

// run runs the front end over u.  The analyzed program is returned even if
// translation was asked for and failed.
func (ic *InProcessCompiler) run(ctx context.Context, u *CompilationUnit, next driver.Compilation) (*driver.Program, error) {
	files := NewVirtualFiles(u)
	opts := ic.env.NewBuildOptions(u, "lib", files.Path, "").DriverOptions()

	slot := &resultSlot{}
	cb := &driver.Callbacks{
		AfterAnalysis: func(prog *driver.Program) driver.Compilation {
			slot.set(prog)
			return next
		},
	}

	err := ic.Frontend.Run(ctx, opts, files, cb)
	prog := slot.get()
	if err != nil {
		return prog, err
	}

	if prog == nil {
		return nil, errors.New("front end finished without analyzing the unit")
	}

	return prog, nil
}

// Compile implements Compiler.
func (ic *InProcessCompiler) Compile(ctx context.Context, u *CompilationUnit) (Outcome, error) {
	prog, err := ic.run(ctx, u, driver.Stop)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{Kind: OutcomeTyped, Program: prog}, nil
}

// Translate runs the front end over u through translation and returns the
// resulting crate translation.  The caller owns the translation.
func (ic *InProcessCompiler) Translate(ctx context.Context, u *CompilationUnit) (*trans.CrateTranslation, error) {
	prog, err := ic.run(ctx, u, driver.Continue)
	if err != nil {
		return nil, err
	}

	if prog.Translation == nil {
		return nil, errors.New("front end produced no translation")
	}

	return prog.Translation, nil
}
