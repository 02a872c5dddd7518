package trans

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/llir/llvm/ir/types"
)

func translated(name string, kind ModuleKind) *ModuleTranslation {
	return &ModuleTranslation{Name: name, Kind: kind, Source: Translated{LLVM: NewModuleLLVM(name)}}
}

func preexisting(name string, kind ModuleKind, object string) *ModuleTranslation {
	wp := WorkProduct{CGUName: name, SavedFiles: map[string]string{}}
	if object != "" {
		wp.SavedFiles["o"] = object
	}
	return &ModuleTranslation{Name: name, Kind: kind, Source: Preexisting{WorkProduct: wp}}
}

func TestDisposeReleasesHandlesOnce(t *testing.T) {
	before := LiveHandles()

	ml := NewModuleLLVM("m")
	if got := LiveHandles() - before; got != 3 {
		t.Fatalf("new module holds %d handles, want 3", got)
	}

	ml.Dispose()
	ml.Dispose()

	if got := LiveHandles(); got != before {
		t.Fatalf("live handles after dispose = %d, want %d", got, before)
	}

	if _, err := ml.Module(); err != ErrDisposed {
		t.Fatalf("Module after dispose = %v, want ErrDisposed", err)
	}
	if _, err := ml.TargetMachine(); err != ErrDisposed {
		t.Fatalf("TargetMachine after dispose = %v, want ErrDisposed", err)
	}
}

func TestNewCrateTranslationInvariants(t *testing.T) {
	tests := []struct {
		name  string
		kinds []ModuleKind
		ok    bool
	}{
		{"metadata only", []ModuleKind{ModuleMetadata}, true},
		{"regular and metadata", []ModuleKind{ModuleRegular, ModuleRegular, ModuleMetadata}, true},
		{"with allocator", []ModuleKind{ModuleAllocator, ModuleMetadata, ModuleRegular}, true},
		{"no metadata", []ModuleKind{ModuleRegular}, false},
		{"two metadata", []ModuleKind{ModuleMetadata, ModuleMetadata}, false},
		{"two allocators", []ModuleKind{ModuleMetadata, ModuleAllocator, ModuleAllocator}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var modules []*ModuleTranslation
			for i, k := range tt.kinds {
				modules = append(modules, preexisting(k.String()+string(rune('a'+i)), k, "x.o"))
			}

			ct, err := NewCrateTranslation("c", modules, LinkMeta{}, EncodedMetadata{}, CrateInfo{})
			if tt.ok {
				if err != nil {
					t.Fatalf("NewCrateTranslation: %v", err)
				}
				if len(ct.AllModules()) != len(tt.kinds) {
					t.Fatalf("AllModules has %d entries, want %d", len(ct.AllModules()), len(tt.kinds))
				}
				return
			}

			if _, ok := err.(*ManifestError); !ok {
				t.Fatalf("NewCrateTranslation error = %v, want *ManifestError", err)
			}
		})
	}
}

func TestLinkArgs(t *testing.T) {
	ct := &CrateTranslation{
		CrateName: "c",
		CrateInfo: CrateInfo{
			NativeLibraries: []NativeLibrary{{Name: "m", Kind: "dylib"}},
			UsedCrates: []UsedCrate{
				{Name: "a", Path: "/w/liba.so", Dynamic: true},
				{Name: "b", Path: "/w/libb.so", Dynamic: true},
				{Name: "s", Path: "/s/libs.rlib"},
			},
			LinkArgs: []string{"-Wl,--as-needed"},
		},
	}

	args := LinkArgs(ct, []CompiledModule{{Object: "x.o"}, {Object: "y.o"}}, "out.so")
	got := strings.Join(args[1:], " ")
	want := "-o out.so x.o y.o -L /w -Wl,-rpath,/w /w/liba.so /w/libb.so /s/libs.rlib -lm -Wl,--as-needed"
	if got != want {
		t.Fatalf("LinkArgs =\n  %s\nwant\n  %s", got, want)
	}
}

func TestLinkDisposesModules(t *testing.T) {
	before := LiveHandles()
	dir := t.TempDir()

	regular := translated("code", ModuleRegular)
	mod, _ := regular.Source.(Translated).LLVM.Module()
	mod.NewFunc("hello", types.Void)

	meta := preexisting("meta", ModuleMetadata, filepath.Join(dir, "meta.o"))
	ct, err := NewCrateTranslation("c", []*ModuleTranslation{regular, meta}, LinkMeta{}, EncodedMetadata{}, CrateInfo{})
	if err != nil {
		t.Fatal(err)
	}

	var ran [][]string
	l := &Linker{
		TempDir: dir,
		Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			ran = append(ran, append([]string{name}, args...))
			return nil, nil
		},
	}

	out, err := l.Link(context.Background(), ct, filepath.Join(dir, "libc.so"))
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if out != filepath.Join(dir, "libc.so") {
		t.Fatalf("Link returned %q", out)
	}

	if len(ran) != 2 || ran[0][0] != "llc" || ran[1][0] != "cc" {
		t.Fatalf("tools run = %v, want llc then cc", ran)
	}

	ll, err := os.ReadFile(filepath.Join(dir, "c.code.ll"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(ll), "@hello") {
		t.Fatalf("IR does not declare @hello:\n%s", ll)
	}

	if got := LiveHandles(); got != before {
		t.Fatalf("live handles after link = %d, want %d", got, before)
	}
}

func TestLinkFailure(t *testing.T) {
	before := LiveHandles()
	dir := t.TempDir()

	ct, err := NewCrateTranslation("c", []*ModuleTranslation{
		translated("code", ModuleRegular),
		preexisting("meta", ModuleMetadata, "meta.o"),
	}, LinkMeta{}, EncodedMetadata{}, CrateInfo{})
	if err != nil {
		t.Fatal(err)
	}

	l := &Linker{
		TempDir: dir,
		Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			if name == "cc" {
				return []byte("undefined reference"), &exec.ExitError{}
			}
			return nil, nil
		},
	}

	_, err = l.Link(context.Background(), ct, filepath.Join(dir, "libc.so"))
	lf, ok := err.(*LinkFailure)
	if !ok || lf.Tool != "cc" || lf.Output != "undefined reference" {
		t.Fatalf("Link error = %#v, want cc LinkFailure", err)
	}

	if got := LiveHandles(); got != before {
		t.Fatalf("live handles after failed link = %d, want %d", got, before)
	}
}

func TestPreexistingWithoutObject(t *testing.T) {
	ct, err := NewCrateTranslation("c", []*ModuleTranslation{
		preexisting("meta", ModuleMetadata, ""),
	}, LinkMeta{}, EncodedMetadata{}, CrateInfo{})
	if err != nil {
		t.Fatal(err)
	}

	l := &Linker{TempDir: t.TempDir(), Run: func(context.Context, string, ...string) ([]byte, error) { return nil, nil }}
	if _, err := l.Link(context.Background(), ct, "out.so"); err == nil {
		t.Fatal("Link succeeded without an object for the metadata module")
	}
}
