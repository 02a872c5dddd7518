package engine

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"rusti/common"
	"rusti/driver"

	"github.com/pkg/errors"
)

// CompilationUnit is everything needed to compile one attempt at a
// generation.  It is discarded once the attempt resolves.
type CompilationUnit struct {
	Generation int

	// Attempt counts the earlier attempts at this generation that reached the
	// loader.  It only affects the artifact file name.
	Attempt int

	Prelude string
	Body    string

	// Entry is the function the entry shim calls.  It may be empty.
	Entry string

	Dependencies []Dependency
}

// CrateName returns the crate name of the unit.
func (u *CompilationUnit) CrateName() string {
	return common.CrateName(u.Generation)
}

// EntrySymbol returns the exported entry symbol of the unit.
func (u *CompilationUnit) EntrySymbol() string {
	return common.EntrySymbol(u.Generation)
}

// ArtifactFileName returns the file name of the library the unit compiles to.
func (u *CompilationUnit) ArtifactFileName() string {
	return common.ArtifactFileName(u.Generation, u.Attempt)
}

// VirtualPath is the synthetic path the unit's text is served under when it
// is never written to disk.
func (u *CompilationUnit) VirtualPath() string {
	return path.Join("<rusti>", common.SourceFileName(u.Generation))
}

// Text returns the source of the unit: the prelude, the body and the entry
// shim.  The shim catches panics of the entry so that they never unwind
// across the C boundary: it returns 0 on success and 101 on panic.
func (u *CompilationUnit) Text() string {
	sb := strings.Builder{}
	sb.WriteString(u.Prelude)
	sb.WriteString(u.Body)
	if !strings.HasSuffix(u.Body, "\n") {
		sb.WriteByte('\n')
	}

	fmt.Fprintf(&sb, "\n#[no_mangle]\npub extern \"C\" fn %s() -> i32 {\n", u.EntrySymbol())
	if u.Entry == "" {
		sb.WriteString("    0\n")
	} else {
		fmt.Fprintf(&sb, "    match ::std::panic::catch_unwind(::std::panic::AssertUnwindSafe(|| { %s(); })) {\n", u.Entry)
		sb.WriteString("        Ok(()) => 0,\n        Err(_) => 101,\n    }\n")
	}
	sb.WriteString("}\n")

	return sb.String()
}

// Materialize writes the text of the unit into dir and returns the path of
// the written file.
func (u *CompilationUnit) Materialize(dir string) (string, error) {
	srcPath := filepath.Join(dir, common.SourceFileName(u.Generation))
	if err := os.WriteFile(srcPath, []byte(u.Text()), 0o644); err != nil {
		return "", errors.Wrap(err, "writing generated source")
	}

	return srcPath, nil
}

// -----------------------------------------------------------------------------

// VirtualFiles is a driver.FileLoader serving one in-memory file.  All other
// paths are looked up on disk.
type VirtualFiles struct {
	Path string
	Text string
}

// NewVirtualFiles creates a loader serving the text of u under its virtual path.
func NewVirtualFiles(u *CompilationUnit) *VirtualFiles {
	return &VirtualFiles{Path: u.VirtualPath(), Text: u.Text()}
}

// FileExists implements driver.FileLoader.
func (vf *VirtualFiles) FileExists(p string) bool {
	if p == vf.Path {
		return true
	}

	return driver.RealFiles{}.FileExists(p)
}

// ReadFile implements driver.FileLoader.
func (vf *VirtualFiles) ReadFile(p string) (string, error) {
	if p == vf.Path {
		return vf.Text, nil
	}

	return driver.RealFiles{}.ReadFile(p)
}
