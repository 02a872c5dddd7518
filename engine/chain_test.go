package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rusti/common"
)

func chainOf(n int) *Chain {
	c := &Chain{}
	for i := 0; i < n; i++ {
		c.Append(ArtifactRecord{
			Generation:     i,
			CrateName:      common.CrateName(i),
			ArtifactPath:   filepath.Join("/w", common.ArtifactFileName(i, 0)),
			ExportedSymbol: common.EntrySymbol(i),
		})
	}

	return c
}

func TestAppendRequiresNextGeneration(t *testing.T) {
	c := chainOf(2)

	if _, err := c.Append(ArtifactRecord{Generation: 3}); err == nil {
		t.Fatal("appended generation 3 to a chain of length 2")
	}
	if _, err := c.Append(ArtifactRecord{Generation: 1}); err == nil {
		t.Fatal("appended generation 1 twice")
	}

	gen, err := c.Append(ArtifactRecord{Generation: 2})
	if err != nil || gen != 2 {
		t.Fatalf("Append = %d, %v; want 2, nil", gen, err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
}

func TestPreludeImportsPreviousGenerationOnly(t *testing.T) {
	if p := chainOf(0).PreludeForNext(); strings.Contains(p, "extern crate") || !strings.HasPrefix(p, "#![allow(") {
		t.Fatalf("prelude of generation 0 = %q", p)
	}

	for n := 1; n < 5; n++ {
		p := chainOf(n).PreludeForNext()

		prev := common.CrateName(n - 1)
		if !strings.Contains(p, "extern crate "+prev+";") || !strings.Contains(p, "pub use "+prev+"::*;") {
			t.Fatalf("prelude of generation %d does not import %s:\n%s", n, prev, p)
		}

		for i := 0; i < n-1; i++ {
			if strings.Contains(p, common.CrateName(i)+";") || strings.Contains(p, common.CrateName(i)+"::") {
				t.Fatalf("prelude of generation %d references %s:\n%s", n, common.CrateName(i), p)
			}
		}
	}
}

func TestDependenciesDescending(t *testing.T) {
	for n := 0; n < 5; n++ {
		c := chainOf(n)
		deps := c.CurrentDependencies()
		if len(deps) != n {
			t.Fatalf("generation %d has %d dependencies, want %d", n, len(deps), n)
		}

		for i, dep := range deps {
			want := c.At(n - 1 - i)
			if dep.Generation != want.Generation || dep.Path != want.ArtifactPath {
				t.Fatalf("dependency %d = %+v, want generation %d at %s", i, dep, want.Generation, want.ArtifactPath)
			}
		}
	}
}

func TestUnitText(t *testing.T) {
	u := chainOf(1).NewUnit("pub fn hello() {}", "hello")
	text := u.Text()

	for _, want := range []string{
		"extern crate rusti_gen_0;",
		"pub fn hello() {}\n",
		"#[no_mangle]\npub extern \"C\" fn rusti_entry_1() -> i32 {",
		"catch_unwind(::std::panic::AssertUnwindSafe(|| { hello(); }))",
		"Err(_) => 101,",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("unit text is missing %q:\n%s", want, text)
		}
	}

	if idx := strings.Index(text, "pub fn hello"); idx < strings.Index(text, "pub use") {
		t.Error("body precedes prelude")
	}

	empty := chainOf(0).NewUnit("struct S;", "").Text()
	if strings.Contains(empty, "catch_unwind") || !strings.Contains(empty, "fn rusti_entry_0() -> i32 {\n    0\n}") {
		t.Errorf("unit text without entry:\n%s", empty)
	}
}

func TestMaterializeAndVirtualFiles(t *testing.T) {
	dir := t.TempDir()
	u := chainOf(0).NewUnit("fn f() {}", "f")

	path, err := u.Materialize(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "rusti_gen_0.rs" {
		t.Fatalf("materialized to %s", path)
	}
	onDisk, _ := os.ReadFile(path)
	if string(onDisk) != u.Text() {
		t.Fatal("materialized text differs from unit text")
	}

	vf := NewVirtualFiles(u)
	if !vf.FileExists(vf.Path) {
		t.Fatal("virtual path does not exist")
	}
	if text, _ := vf.ReadFile(vf.Path); text != u.Text() {
		t.Fatal("virtual text differs from unit text")
	}
	if !vf.FileExists(path) || vf.FileExists(filepath.Join(dir, "missing.rs")) {
		t.Fatal("virtual files do not fall back to disk")
	}
}

func TestBuildOptionsArgs(t *testing.T) {
	env := buildEnv{Sysroot: "/sys", SearchPaths: []string{"/libs", "/w"}, WorkDir: "/w"}
	u := chainOf(2).NewUnit("", "")

	opts := env.NewBuildOptions(u, "dylib", "/w/rusti_gen_2.rs", "/w/librusti_gen_2.so")
	got := strings.Join(opts.Args(), " ")
	want := "--sysroot /sys -C prefer-dynamic -C rpath -C opt-level=0 -L /libs -L /w " +
		"--crate-type dylib --crate-name rusti_gen_2 " +
		"--extern rusti_gen_1=" + filepath.Join("/w", common.ArtifactFileName(1, 0)) + " " +
		"--extern rusti_gen_0=" + filepath.Join("/w", common.ArtifactFileName(0, 0)) + " " +
		"-o /w/librusti_gen_2.so /w/rusti_gen_2.rs"
	if got != want {
		t.Fatalf("Args =\n  %s\nwant\n  %s", got, want)
	}

	dopts := env.NewBuildOptions(u, "lib", "<rusti>/rusti_gen_2.rs", "").DriverOptions()
	if dopts.CrateType != "lib" || dopts.CrateName != "rusti_gen_2" || len(dopts.Externs) != 2 || dopts.UnstableFeatures {
		t.Fatalf("DriverOptions = %+v", dopts)
	}
	if dopts.Externs[0].Name != "rusti_gen_1" || dopts.Externs[0].Path != opts.Externs[0].Path {
		t.Fatal("driver externs differ from command line externs")
	}
}

func TestUnitMakesItemsVisible(t *testing.T) {
	get := chainOf(0).NewUnit("fn get() -> i32 { 42 }", "")
	if !strings.Contains(get.Text(), "pub fn get() -> i32 { 42 }") {
		t.Fatalf("private item not made public:\n%s", get.Text())
	}

	show := chainOf(1).NewUnit(`fn show() { println!("{}", get()); }`, "show")
	text := show.Text()
	if !strings.Contains(text, "pub fn show()") || !strings.Contains(text, "pub use rusti_gen_0::*;") {
		t.Fatalf("unit of generation 1:\n%s", text)
	}
}
