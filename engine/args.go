package engine

import (
	"strconv"

	"rusti/driver"
)

// BuildOptions are the arguments of one compilation.  Both compilation
// strategies derive their arguments from the same options so they report the
// same diagnostics for the same unit.
type BuildOptions struct {
	Sysroot     string
	SearchPaths []string
	CrateName   string
	CrateType   string

	// Externs lists every prior generation, most recent first.
	Externs []driver.Extern

	Output string
	Input  string

	PreferDynamic bool
	RPath         bool
	OptLevel      int
}

// buildEnv is the part of the build options fixed for a whole session.
type buildEnv struct {
	Sysroot     string
	SearchPaths []string
	WorkDir     string
}

// searchPaths returns the configured search paths followed by the work
// directory, where the artifacts of prior generations are.
func (env buildEnv) searchPaths() []string {
	paths := make([]string, 0, len(env.SearchPaths)+1)
	seen := make(map[string]bool)
	for _, p := range append(append([]string(nil), env.SearchPaths...), env.WorkDir) {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}

	return paths
}

// NewBuildOptions builds the options compiling u with the given crate type
// from input to output.
func (env buildEnv) NewBuildOptions(u *CompilationUnit, crateType, input, output string) BuildOptions {
	opts := BuildOptions{
		Sysroot:       env.Sysroot,
		SearchPaths:   env.searchPaths(),
		CrateName:     u.CrateName(),
		CrateType:     crateType,
		Input:         input,
		Output:        output,
		PreferDynamic: true,
		RPath:         true,
	}

	for _, dep := range u.Dependencies {
		opts.Externs = append(opts.Externs, driver.Extern{Name: dep.CrateName, Path: dep.Path})
	}

	return opts
}

// Args renders the options as the external compiler's command line.
func (o BuildOptions) Args() []string {
	var args []string
	if o.Sysroot != "" {
		args = append(args, "--sysroot", o.Sysroot)
	}

	if o.PreferDynamic {
		args = append(args, "-C", "prefer-dynamic")
	}
	if o.RPath {
		args = append(args, "-C", "rpath")
	}
	args = append(args, "-C", "opt-level="+strconv.Itoa(o.OptLevel))

	for _, p := range o.SearchPaths {
		args = append(args, "-L", p)
	}

	args = append(args, "--crate-type", o.CrateType, "--crate-name", o.CrateName)
	for _, ext := range o.Externs {
		args = append(args, "--extern", ext.Name+"="+ext.Path)
	}

	if o.Output != "" {
		args = append(args, "-o", o.Output)
	}

	return append(args, o.Input)
}

// DriverOptions converts the options into the in-process front end's form.
// Unstable features are never enabled.
func (o BuildOptions) DriverOptions() driver.Options {
	return driver.Options{
		Sysroot:     o.Sysroot,
		SearchPaths: o.SearchPaths,
		CrateName:   o.CrateName,
		CrateType:   o.CrateType,
		Externs:     o.Externs,
		Input:       o.Input,
		Output:      o.Output,
		OptLevel:    o.OptLevel,
	}
}
