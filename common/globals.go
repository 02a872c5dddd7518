package common

import (
	"fmt"
	"runtime"
)

// RustiVersion is the current rusti version as a string.
const RustiVersion string = "0.2.0"

// DefaultCompiler is the name of the external compiler binary used when none
// is configured.
const DefaultCompiler string = "rustc"

// ConfigFileName is the name of the optional rusti configuration file.
const ConfigFileName string = "rusti.toml"

// DefaultWorkDir is the scratch directory used for generated sources and
// artifacts when none is configured.
const DefaultWorkDir string = ".rusti"

// LockFileName is the name of the session lock file inside the work
// directory.
const LockFileName string = ".rusti.lock"

// HistoryFileName is the name of the REPL history file in the user's home
// directory.
const HistoryFileName string = ".rusti_history"

// GenerationPrefix prefixes every generated crate name.
const GenerationPrefix string = "rusti_gen_"

// EntryPrefix prefixes every generated entry symbol.
const EntryPrefix string = "rusti_entry_"

// StatementPrefix prefixes the functions the REPL wraps statement input in.
const StatementPrefix string = "rusti_stmt_"

// RustFileExt is the file extension for a Rust source file.
const RustFileExt string = ".rs"

// CrateName returns the crate name (and namespace) of the given generation.
func CrateName(gen int) string {
	return fmt.Sprintf("%s%d", GenerationPrefix, gen)
}

// EntrySymbol returns the exported entry symbol of the given generation.
func EntrySymbol(gen int) string {
	return fmt.Sprintf("%s%d", EntryPrefix, gen)
}

// SourceFileName returns the name of the generated source file of the given
// generation.
func SourceFileName(gen int) string {
	return CrateName(gen) + RustFileExt
}

// ArtifactFileName returns the file name of the loadable library produced for
// the given generation.  The attempt counts previous attempts at the same
// generation that were already handed to the dynamic loader: the first such
// attempt uses the plain name.
func ArtifactFileName(gen, attempt int) string {
	stem := CrateName(gen)
	if attempt > 0 {
		stem = fmt.Sprintf("%s_r%d", stem, attempt)
	}

	switch runtime.GOOS {
	case "windows":
		return stem + ".dll"
	case "darwin":
		return "lib" + stem + ".dylib"
	default:
		return "lib" + stem + ".so"
	}
}
