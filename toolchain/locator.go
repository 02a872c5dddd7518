// Package toolchain locates the external compiler installation: its sysroot
// (the root directory containing its standard libraries) and its version.
package toolchain

import (
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	"rusti/common"
	"rusti/report"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
)

// ErrorKind classifies toolchain discovery failures.
type ErrorKind int

// Enumeration of toolchain error kinds.
const (
	NotFound      ErrorKind = iota // The compiler binary cannot be launched.
	OutputInvalid                  // The compiler printed something unusable.
	VersionTooOld                  // The compiler is older than required.
)

var errorKindNames = map[ErrorKind]string{
	NotFound:      "toolchain not found",
	OutputInvalid: "toolchain output invalid",
	VersionTooOld: "toolchain version too old",
}

// Error is a toolchain discovery failure.  It is fatal to engine
// construction: there is no fallback toolchain.
type Error struct {
	Kind   ErrorKind
	Binary string
	Err    error
}

func (e *Error) Error() string {
	return errorKindNames[e.Kind] + ": `" + e.Binary + "`: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind returns whether err is a toolchain error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.Kind == kind
}

// -----------------------------------------------------------------------------

// Runner runs a command to completion and returns its standard output.
type Runner func(name string, args ...string) ([]byte, error)

// ExecRunner is the Runner that launches real processes.
func ExecRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Locator discovers and caches facts about one compiler installation.  Each
// fact is queried from the compiler at most once per locator.
type Locator struct {
	binary string
	run    Runner

	sysrootOnce sync.Once
	sysroot     string
	sysrootErr  error

	versionOnce sync.Once
	version     string
	versionErr  error
}

// NewLocator creates a locator for the given compiler binary.  An empty binary
// selects the default compiler; a nil runner selects ExecRunner.
func NewLocator(binary string, run Runner) *Locator {
	if binary == "" {
		binary = common.DefaultCompiler
		if runtime.GOOS == "windows" {
			binary += ".exe"
		}
	}

	if run == nil {
		run = ExecRunner
	}

	return &Locator{binary: binary, run: run}
}

// Binary returns the compiler binary this locator queries.
func (l *Locator) Binary() string {
	return l.binary
}

// Resolve returns the sysroot of the compiler.  The compiler is only invoked
// on the first call: later calls return the cached result.
func (l *Locator) Resolve() (string, error) {
	l.sysrootOnce.Do(func() {
		out, err := l.run(l.binary, "--print", "sysroot")
		if err != nil {
			l.sysrootErr = &Error{Kind: NotFound, Binary: l.binary, Err: launchError(err)}
			return
		}

		l.sysroot, l.sysrootErr = ParseSysroot(out)
		if l.sysrootErr != nil {
			l.sysrootErr = &Error{Kind: OutputInvalid, Binary: l.binary, Err: l.sysrootErr}
			return
		}

		report.ReportDebug("using sysroot: " + l.sysroot)
	})

	return l.sysroot, l.sysrootErr
}

// Version returns the canonical semantic version of the compiler, eg.
// `v1.75.0`.  Like Resolve, the compiler is only invoked once.
func (l *Locator) Version() (string, error) {
	l.versionOnce.Do(func() {
		out, err := l.run(l.binary, "--version")
		if err != nil {
			l.versionErr = &Error{Kind: NotFound, Binary: l.binary, Err: launchError(err)}
			return
		}

		l.version, l.versionErr = ParseVersion(out)
		if l.versionErr != nil {
			l.versionErr = &Error{Kind: OutputInvalid, Binary: l.binary, Err: l.versionErr}
		}
	})

	return l.version, l.versionErr
}

// CheckVersion fails if the compiler is older than the given minimum version.
// The minimum may be given with or without the leading `v`.
func (l *Locator) CheckVersion(min string) error {
	minVersion, err := CanonicalVersion(min)
	if err != nil {
		return err
	}

	version, err := l.Version()
	if err != nil {
		return err
	}

	if semver.Compare(version, minVersion) < 0 {
		return &Error{
			Kind:   VersionTooOld,
			Binary: l.binary,
			Err:    errors.Errorf("found %s, need at least %s", version, minVersion),
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// ParseSysroot extracts the sysroot path from the output of `--print sysroot`.
func ParseSysroot(out []byte) (string, error) {
	if !utf8.Valid(out) {
		return "", errors.New("sysroot is not valid UTF-8")
	}

	path := strings.TrimRight(string(out), "\r\n")
	if path == "" {
		return "", errors.New("sysroot is empty")
	}

	return path, nil
}

// ParseVersion extracts the version from the output of `--version`, which is
// of the form `rustc 1.75.0 (82e1608df 2023-12-21)`.
func ParseVersion(out []byte) (string, error) {
	if !utf8.Valid(out) {
		return "", errors.New("version is not valid UTF-8")
	}

	fields := strings.Fields(string(out))
	if len(fields) < 2 {
		return "", errors.Errorf("unrecognized version string `%s`", strings.TrimSpace(string(out)))
	}

	return CanonicalVersion(fields[1])
}

// CanonicalVersion converts a version such as `1.75.0` or `v1.75.0-nightly`
// into canonical semver form.
func CanonicalVersion(v string) (string, error) {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}

	if !semver.IsValid(v) {
		return "", errors.Errorf("invalid version `%s`", v)
	}

	return semver.Canonical(v), nil
}

// launchError attaches the standard error of an exited compiler to err.
func launchError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return errors.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
	}

	return err
}
