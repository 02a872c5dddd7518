package engine

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"rusti/report"

	"github.com/pkg/errors"
)

// ExternalCompiler compiles units by running the external compiler binary
// once per unit.  Units are materialized in the work directory and compiled
// to dynamic libraries next to them.
type ExternalCompiler struct {
	Binary string
	env    buildEnv
}

// NewExternalCompiler creates an external compiler running binary.
func NewExternalCompiler(binary string, env buildEnv) *ExternalCompiler {
	return &ExternalCompiler{Binary: binary, env: env}
}

// Compile implements Compiler.
func (ec *ExternalCompiler) Compile(ctx context.Context, u *CompilationUnit) (Outcome, error) {
	srcPath, err := u.Materialize(ec.env.WorkDir)
	if err != nil {
		return Outcome{}, err
	}

	outPath := filepath.Join(ec.env.WorkDir, u.ArtifactFileName())
	if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
		return Outcome{}, errors.Wrap(err, "removing stale artifact")
	}

	args := ec.env.NewBuildOptions(u, "dylib", srcPath, outPath).Args()
	report.ReportDebug("running "+ec.Binary, args)

	cmd := exec.CommandContext(ctx, ec.Binary, args...)
	cmd.Dir = ec.env.WorkDir
	out := &bytes.Buffer{}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			// the compiler ran, but rejected the unit
			return Outcome{}, &CompileFailure{Kind: ToolchainRejected, Output: out.String(), ExitCode: exitErr.ExitCode(), Err: err}
		}

		return Outcome{}, &CompileFailure{Kind: ToolchainRejected, Output: err.Error(), ExitCode: -1, Err: err}
	}

	if _, err := os.Stat(outPath); err != nil {
		return Outcome{}, &CompileFailure{
			Kind:   ToolchainRejected,
			Output: out.String() + "no artifact written to " + outPath,
			Err:    err,
		}
	}

	if out.Len() > 0 {
		report.ReportVerbose("%s", out.String())
	}

	return Outcome{Kind: OutcomeLibrary, Path: outPath}, nil
}
