//go:build cgo && (linux || darwin)

package engine

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"rusti/common"
	"rusti/report"
)

// newRustcEngine creates an engine driving the installed rustc and the
// platform loader.  The test is skipped if there is no rustc.
func newRustcEngine(t *testing.T) *Engine {
	t.Helper()

	if testing.Short() {
		t.Skip("compiles with rustc")
	}
	rustc, err := exec.LookPath("rustc")
	if err != nil {
		t.Skip("rustc not found")
	}

	withReporter(t, report.LogLevelWarn)
	e, err := New(Config{Compiler: rustc, WorkDir: t.TempDir(), CaptureNativeStderr: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	return e
}

func TestRustcSession(t *testing.T) {
	e := newRustcEngine(t)
	ctx := context.Background()

	eval := func(src, entry string) *Result {
		t.Helper()
		return e.Eval(ctx, src, entry)
	}
	mustEval := func(src, entry string, gen int) *Result {
		t.Helper()

		res := eval(src, entry)
		if !res.OK() || res.Record == nil || res.Record.Generation != gen {
			t.Fatalf("Eval(%q) = %s, %v, want generation %d:\n%s", src, res.State, res.Err, gen, res.Diagnostics)
		}
		return res
	}

	mustEval("fn hello() {}", "hello", 0)

	res := eval("fn broken( {", "")
	var cf *CompileFailure
	if !asCompileFailure(res.Err, &cf) || cf.Kind != ToolchainRejected {
		t.Fatalf("syntax error gave %s, %v", res.State, res.Err)
	}
	if res.Diagnostics == "" || e.Len() != 1 {
		t.Fatalf("rejected compile: %d diagnostic bytes, chain length %d", len(res.Diagnostics), e.Len())
	}

	// items without `pub` are visible to the next generation
	mustEval("fn get() -> i32 { 42 }", "", 1)
	mustEval(`fn show() { println!("{}", get()); }`, "show", 2)

	res = eval(`fn boom() { panic!("boom"); }`, "boom")
	if res.State != Recovered {
		t.Fatalf("faulting entry gave %s, %v", res.State, res.Err)
	}
	if ep, ok := res.Fault.(*EntryPanic); !ok || ep.Status != 101 {
		t.Fatalf("fault = %v, want an entry panic with status 101", res.Fault)
	}
	if e.Len() != 3 {
		t.Fatalf("chain length %d after a fault", e.Len())
	}

	retry := mustEval("fn again() -> i32 { get() + 1 }", "", 3)
	if filepath.Base(retry.Record.ArtifactPath) != common.ArtifactFileName(3, 1) {
		t.Fatalf("retried artifact is %s", retry.Record.ArtifactPath)
	}

	mustEval("fn last() { assert_eq!(again(), 43); }", "last", 4)
}
