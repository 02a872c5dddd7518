// Package engine is the incremental execution engine.  Every evaluation
// compiles one fragment of source into a library that depends on all the
// previously accepted fragments, loads it into the process and calls its
// entry point.  Evaluations run under a monitor so that neither a rejected
// compile nor a faulting entry point can take the session down.
package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"rusti/common"
	"rusti/driver"
	"rusti/dylib"
	"rusti/report"
	"rusti/toolchain"
	"rusti/trans"

	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// Strategy selects how evaluations are compiled.
type Strategy string

// Enumeration of strategies.
const (
	StrategyExternal  Strategy = "external"
	StrategyInProcess Strategy = "inprocess"
)

// Config configures an engine.
type Config struct {
	// Compiler is the external compiler binary.
	Compiler string

	// Sysroot overrides sysroot discovery when set.
	Sysroot string

	// MinVersion is the minimum accepted compiler version, if any.
	MinVersion string

	Strategy    Strategy
	WorkDir     string
	SearchPaths []string

	// CaptureNativeStderr makes the monitor capture what native code writes
	// to standard error during an evaluation.
	CaptureNativeStderr bool

	// LLC and Linker are the tools used to link emitted crates.
	LLC    string
	Linker string
}

// Option customizes the collaborators of an engine.
type Option func(e *Engine)

// WithCompiler replaces the compiler of the configured strategy.
func WithCompiler(c Compiler) Option {
	return func(e *Engine) {
		e.compiler = c
	}
}

// WithLoader replaces the dynamic loader.
func WithLoader(l Loader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithRunner replaces the runner used to query the compiler for its sysroot
// and version.
func WithRunner(run toolchain.Runner) Option {
	return func(e *Engine) {
		e.runner = run
	}
}

// WithFrontend replaces the in-process front end.
func WithFrontend(fe Frontend) Option {
	return func(e *Engine) {
		e.frontend = fe
	}
}

// WithToolRunner replaces the runner used by the linker.
func WithToolRunner(run trans.ToolRunner) Option {
	return func(e *Engine) {
		e.toolRunner = run
	}
}

// Result is the result of one evaluation.
type Result struct {
	Generation int
	State      State
	Err        error
	Fault      interface{}

	// Record is set if the evaluation was added to the chain.
	Record *ArtifactRecord

	// Program is set for evaluations compiled in process.
	Program *driver.Program

	// Diagnostics is everything captured during the evaluation.
	Diagnostics string
}

// OK returns whether the evaluation ran to completion without error.
func (r *Result) OK() bool {
	return r.State == Completed && r.Err == nil
}

// Engine is one interactive session.  Its methods may be called from any
// goroutine but evaluations are run one at a time.
type Engine struct {
	m sync.Mutex

	cfg         Config
	sysroot     string
	searchPaths []string
	chain       Chain

	// attempts counts, per generation, the attempts that reached the loader.
	attempts map[int]int

	compiler Compiler
	inproc   *InProcessCompiler
	loader   Loader
	monitor  *Monitor
	linker   *trans.Linker

	runner     toolchain.Runner
	frontend   Frontend
	toolRunner trans.ToolRunner

	lock *lockedfile.File
}

// New creates an engine.  It takes the session lock of the work directory,
// blocking while another session holds it, and discovers the compiler's
// sysroot.  Failing to discover the sysroot is fatal: no engine is returned.
func New(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{attempts: make(map[int]int)}
	for _, opt := range opts {
		opt(e)
	}

	if cfg.WorkDir == "" {
		cfg.WorkDir = common.DefaultWorkDir
	}
	workDir, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolving work directory")
	}
	cfg.WorkDir = workDir
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyExternal
	}
	e.cfg = cfg
	e.searchPaths = append([]string(nil), cfg.SearchPaths...)

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating work directory")
	}

	e.lock, err = lockedfile.Create(filepath.Join(workDir, common.LockFileName))
	if err != nil {
		return nil, errors.Wrap(err, "locking work directory")
	}

	if err := e.init(); err != nil {
		e.lock.Close()
		return nil, err
	}

	return e, nil
}

// init sets up everything behind the session lock.
func (e *Engine) init() error {
	if err := removeScratch(e.cfg.WorkDir); err != nil {
		return err
	}

	loc := toolchain.NewLocator(e.cfg.Compiler, e.runner)
	if e.cfg.Sysroot != "" {
		e.sysroot = e.cfg.Sysroot
	} else {
		sysroot, err := loc.Resolve()
		if err != nil {
			return err
		}
		e.sysroot = sysroot
	}

	if e.cfg.MinVersion != "" {
		if err := loc.CheckVersion(e.cfg.MinVersion); err != nil {
			return err
		}
	}

	env := buildEnv{Sysroot: e.sysroot, SearchPaths: e.searchPaths, WorkDir: e.cfg.WorkDir}

	if e.frontend == nil {
		e.frontend = driver.New()
	}
	e.inproc = NewInProcessCompiler(e.frontend, env)

	if e.compiler == nil {
		switch e.cfg.Strategy {
		case StrategyExternal:
			e.compiler = NewExternalCompiler(loc.Binary(), env)
		case StrategyInProcess:
			e.compiler = e.inproc
		default:
			return errors.Errorf("unknown strategy `%s`", e.cfg.Strategy)
		}
	}

	if e.loader == nil {
		e.loader = DynamicLoader{}
	}

	e.monitor = NewMonitor(e.cfg.CaptureNativeStderr)
	e.linker = &trans.Linker{
		LLC:     e.cfg.LLC,
		Command: e.cfg.Linker,
		TempDir: filepath.Join(e.cfg.WorkDir, "emit"),
		Run:     e.toolRunner,
	}

	report.ReportVerbose("using sysroot `%s` with the %s strategy", e.sysroot, e.cfg.Strategy)
	return nil
}

// removeScratch deletes the files a previous session left in the work
// directory.
func removeScratch(dir string) error {
	for _, pattern := range []string{common.GenerationPrefix + "*", "lib" + common.GenerationPrefix + "*"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return errors.Wrap(err, "listing scratch files")
		}

		for _, m := range matches {
			if err := os.RemoveAll(m); err != nil {
				return errors.Wrap(err, "removing scratch files")
			}
		}
	}

	return os.RemoveAll(filepath.Join(dir, "emit"))
}

// Eval evaluates source as the next generation and calls entry inside it.  An
// empty entry only compiles and loads the source.  The generation is added
// to the chain only if every step succeeded.
func (e *Engine) Eval(ctx context.Context, source, entry string) *Result {
	e.m.Lock()
	defer e.m.Unlock()

	u := e.chain.NewUnit(source, entry)
	u.Attempt = e.attempts[u.Generation]
	res := &Result{Generation: u.Generation}

	var outcome Outcome
	rr := e.run(func() error {
		var err error
		outcome, err = e.compiler.Compile(ctx, u)
		if err != nil {
			return reportFailure(err)
		}

		if outcome.Kind != OutcomeLibrary {
			return nil
		}

		e.attempts[u.Generation]++
		return reportFailure(e.loader.LoadAndCall(outcome.Path, u.EntrySymbol()))
	}, res)

	res.Program = outcome.Program
	if rr.State != Completed || rr.Err != nil || outcome.Kind != OutcomeLibrary {
		return res
	}

	rec := ArtifactRecord{
		Generation:     u.Generation,
		CrateName:      u.CrateName(),
		ArtifactPath:   outcome.Path,
		SourcePath:     filepath.Join(e.cfg.WorkDir, common.SourceFileName(u.Generation)),
		ExportedSymbol: u.EntrySymbol(),
	}
	if _, err := e.chain.Append(rec); err != nil {
		report.ReportICE("%s", err)
		res.Err = err
		return res
	}

	res.Record = &rec
	return res
}

// Inspect analyzes source in process as if it were the next generation.  The
// chain is never changed.
func (e *Engine) Inspect(ctx context.Context, source string) (*driver.Program, *Result) {
	e.m.Lock()
	defer e.m.Unlock()

	u := e.chain.NewUnit(source, "")
	res := &Result{Generation: u.Generation}

	var prog *driver.Program
	e.run(func() error {
		outcome, err := e.inproc.Compile(ctx, u)
		if err != nil {
			return reportFailure(err)
		}

		prog = outcome.Program
		return nil
	}, res)

	res.Program = prog
	return prog, res
}

// Emit translates source in process as if it were the next generation and
// links it into a library at outPath.  The chain is never changed.
func (e *Engine) Emit(ctx context.Context, source, outPath string) *Result {
	e.m.Lock()
	defer e.m.Unlock()

	u := e.chain.NewUnit(source, "")
	res := &Result{Generation: u.Generation}

	e.run(func() error {
		ct, err := e.inproc.Translate(ctx, u)
		if err != nil {
			return reportFailure(err)
		}

		if _, err := e.linker.Link(ctx, ct, outPath); err != nil {
			return reportFailure(err)
		}

		report.ReportVerbose("emitted `%s`", outPath)
		return nil
	}, res)

	return res
}

// run runs work under the monitor and copies what it observed into res.
func (e *Engine) run(work func() error, res *Result) RunResult {
	report.ResetErrors()

	rr := e.monitor.Run(work)
	res.State = rr.State
	res.Err = rr.Err
	res.Fault = rr.Fault
	res.Diagnostics = rr.Output

	return rr
}

// reportFailure reports a failed step of an evaluation and returns err.
// Rejected compiles and links are the user's to fix: the tool output is shown
// as is.  A library that cannot be loaded or entered is an internal error
// since the engine generated both the library and its entry point.
func reportFailure(err error) error {
	if err == nil {
		return nil
	}

	var cf *CompileFailure
	var lnf *trans.LinkFailure
	var lf *dylib.LoadFailure
	var snf *dylib.SymbolNotFound
	switch {
	case errors.As(err, &cf):
		report.ReportToolchainOutput(cf.Output)
	case errors.As(err, &lnf):
		report.ReportToolchainOutput(lnf.Error())
	case errors.As(err, &lf), errors.As(err, &snf):
		report.ReportICE("generated library could not be invoked: %s", err)
	default:
		report.ReportICE("%s", err)
	}

	return err
}

// Chain returns the records of the accepted generations.
func (e *Engine) Chain() []ArtifactRecord {
	e.m.Lock()
	defer e.m.Unlock()

	return e.chain.Records()
}

// Len returns the number of accepted generations.
func (e *Engine) Len() int {
	e.m.Lock()
	defer e.m.Unlock()

	return e.chain.Len()
}

// Sysroot returns the sysroot of the compiler.
func (e *Engine) Sysroot() string {
	return e.sysroot
}

// Monitor returns the monitor evaluations run under.
func (e *Engine) Monitor() *Monitor {
	return e.monitor
}

// Close releases the session lock.  Loaded libraries stay loaded.
func (e *Engine) Close() error {
	e.m.Lock()
	defer e.m.Unlock()

	if e.lock == nil {
		return nil
	}

	err := e.lock.Close()
	e.lock = nil
	return err
}
