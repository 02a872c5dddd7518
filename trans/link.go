package trans

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// LinkFailure is returned when one of the tools run by the linker fails.
type LinkFailure struct {
	Tool   string
	Output string
	Err    error
}

func (lf *LinkFailure) Error() string {
	if lf.Output == "" {
		return "failed to run " + lf.Tool + ": " + lf.Err.Error()
	}

	return lf.Tool + " error:\n" + lf.Output
}

func (lf *LinkFailure) Unwrap() error {
	return lf.Err
}

// errNoObject is returned when a reused module has no saved object file.
var errNoObject = errors.New("work product has no object file")

// ToolRunner runs an external tool and returns its combined output.
type ToolRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execToolRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out := &bytes.Buffer{}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	return out.Bytes(), err
}

// Linker produces a loadable library from a crate translation.  Translated
// modules are written out as IR and compiled to objects with LLC; reused
// modules contribute their saved objects.
type Linker struct {
	// LLC is the IR compiler.  Defaults to `llc`.
	LLC string

	// Command is the linker driver.  Defaults to `cc`.
	Command string

	// TempDir holds the intermediate files.
	TempDir string

	// Run runs the tools.  Defaults to running real processes.
	Run ToolRunner
}

func (l *Linker) llc() string {
	if l.LLC == "" {
		return "llc"
	}

	return l.LLC
}

func (l *Linker) command() string {
	if l.Command == "" {
		return "cc"
	}

	return l.Command
}

func (l *Linker) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if l.Run == nil {
		return execToolRunner(ctx, name, args...)
	}

	return l.Run(ctx, name, args...)
}

// Link compiles every module of the crate translation and links them into a
// shared library at outPath, which it returns.  The translated modules are
// disposed whether or not linking succeeds.
func (l *Linker) Link(ctx context.Context, ct *CrateTranslation, outPath string) (string, error) {
	defer ct.Dispose()

	if err := ct.Validate(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(l.TempDir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating link directory")
	}

	var compiled []CompiledModule
	for _, mt := range ct.AllModules() {
		cm, err := l.compileModule(ctx, ct.CrateName, mt)
		if err != nil {
			return "", err
		}
		compiled = append(compiled, cm)
	}

	args := LinkArgs(ct, compiled, outPath)
	if out, err := l.run(ctx, l.command(), args...); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// the linker ran, but there were link errors
			return "", &LinkFailure{Tool: l.command(), Output: string(out), Err: err}
		}

		return "", &LinkFailure{Tool: l.command(), Err: err}
	}

	return outPath, nil
}

// compileModule produces the object file for one module.
func (l *Linker) compileModule(ctx context.Context, crateName string, mt *ModuleTranslation) (CompiledModule, error) {
	switch src := mt.Source.(type) {
	case Preexisting:
		obj, ok := src.WorkProduct.Object()
		if !ok {
			return CompiledModule{}, errors.Wrapf(errNoObject, "module `%s`", mt.Name)
		}
		return mt.Compiled(obj), nil
	case Translated:
		mod, err := src.LLVM.Module()
		if err != nil {
			return CompiledModule{}, errors.Wrapf(err, "module `%s`", mt.Name)
		}

		stem := filepath.Join(l.TempDir, crateName+"."+mt.Name)
		irPath, objPath := stem+".ll", stem+".o"
		if err := os.WriteFile(irPath, []byte(mod.String()), 0o644); err != nil {
			return CompiledModule{}, errors.Wrapf(err, "writing IR of module `%s`", mt.Name)
		}

		if out, err := l.run(ctx, l.llc(), "-filetype", "obj", "-o", objPath, irPath); err != nil {
			return CompiledModule{}, &LinkFailure{Tool: l.llc(), Output: string(out), Err: err}
		}

		cm := mt.Compiled(objPath)
		cm.Bytecode = irPath
		return cm, nil
	}

	return CompiledModule{}, errors.Errorf("module `%s` has no source", mt.Name)
}

// LinkArgs builds the linker arguments for the compiled modules of a crate.
func LinkArgs(ct *CrateTranslation, compiled []CompiledModule, outPath string) []string {
	args := []string{"-shared", "-o", outPath}
	if runtime.GOOS == "darwin" {
		args[0] = "-dynamiclib"
	}

	for _, cm := range compiled {
		args = append(args, cm.Object)
	}

	seenDirs := make(map[string]struct{})
	for _, uc := range ct.CrateInfo.UsedCrates {
		if !uc.Dynamic {
			args = append(args, uc.Path)
			continue
		}

		dir := filepath.Dir(uc.Path)
		if _, ok := seenDirs[dir]; !ok {
			seenDirs[dir] = struct{}{}
			args = append(args, "-L", dir, "-Wl,-rpath,"+dir)
		}
		args = append(args, uc.Path)
	}

	for _, lib := range ct.CrateInfo.NativeLibraries {
		if lib.Kind == "framework" {
			args = append(args, "-framework", lib.Name)
		} else {
			args = append(args, "-l"+lib.Name)
		}
	}

	return append(args, ct.CrateInfo.LinkArgs...)
}
