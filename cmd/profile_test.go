package cmd

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"rusti/common"
	"rusti/engine"
	"rusti/report"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), common.ConfigFileName)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadProfileDefaults(t *testing.T) {
	prof, err := LoadProfile("", Overrides{})
	if err != nil {
		t.Fatal(err)
	}

	want := engine.Config{
		Compiler:            common.DefaultCompiler,
		Strategy:            engine.StrategyExternal,
		WorkDir:             common.DefaultWorkDir,
		SearchPaths:         []string{},
		CaptureNativeStderr: true,
	}
	if !reflect.DeepEqual(prof.Engine, want) {
		t.Fatalf("Engine =\n  %+v\nwant\n  %+v", prof.Engine, want)
	}
	if prof.LogLevel != report.LogLevelVerbose {
		t.Fatalf("LogLevel = %d", prof.LogLevel)
	}
}

func TestLoadProfileFile(t *testing.T) {
	path := writeConfig(t, `
[toolchain]
compiler = "rustc-nightly"
sysroot = "/opt/rust"
min-version = "1.31.0"

[engine]
strategy = "inprocess"
work-dir = "/tmp/rusti"
search-paths = ["/a", "/b/"]
capture-native-stderr = false

[link]
llc = "llc-17"
linker = "clang"

[report]
log-level = "warn"
`)

	prof, err := LoadProfile(path, Overrides{})
	if err != nil {
		t.Fatal(err)
	}

	want := engine.Config{
		Compiler:            "rustc-nightly",
		Sysroot:             "/opt/rust",
		MinVersion:          "1.31.0",
		Strategy:            engine.StrategyInProcess,
		WorkDir:             "/tmp/rusti",
		SearchPaths:         []string{"/a", "/b"},
		CaptureNativeStderr: false,
		LLC:                 "llc-17",
		Linker:              "clang",
	}
	if !reflect.DeepEqual(prof.Engine, want) {
		t.Fatalf("Engine =\n  %+v\nwant\n  %+v", prof.Engine, want)
	}
	if prof.LogLevel != report.LogLevelWarn {
		t.Fatalf("LogLevel = %d", prof.LogLevel)
	}
}

func TestLoadProfileOverrides(t *testing.T) {
	path := writeConfig(t, `
[toolchain]
compiler = "rustc-nightly"

[engine]
strategy = "inprocess"
search-paths = ["/file"]
`)

	prof, err := LoadProfile(path, Overrides{
		LogLevel:    "debug",
		Compiler:    "/usr/bin/rustc",
		Strategy:    "external",
		WorkDir:     "scratch",
		SearchPaths: splitSearchPaths("/cli1" + string(os.PathListSeparator) + " /cli2 "),
	})
	if err != nil {
		t.Fatal(err)
	}

	if prof.Engine.Compiler != "/usr/bin/rustc" || prof.Engine.Strategy != engine.StrategyExternal || prof.Engine.WorkDir != "scratch" {
		t.Fatalf("overrides not applied: %+v", prof.Engine)
	}
	if want := []string{"/cli1", "/cli2", "/file"}; !reflect.DeepEqual(prof.Engine.SearchPaths, want) {
		t.Fatalf("SearchPaths = %v, want %v", prof.Engine.SearchPaths, want)
	}
	if prof.LogLevel != report.LogLevelDebug {
		t.Fatalf("LogLevel = %d", prof.LogLevel)
	}
}

func TestLoadProfileInvalid(t *testing.T) {
	tests := []struct {
		name   string
		config string
		ov     Overrides
		errMsg string
	}{
		{"bad strategy", "[engine]\nstrategy = \"jit\"\n", Overrides{}, "invalid strategy"},
		{"bad strategy override", "", Overrides{Strategy: "jit"}, "invalid strategy"},
		{"bad log level", "[report]\nlog-level = \"loud\"\n", Overrides{}, "invalid log level"},
		{"bad version", "[toolchain]\nmin-version = \"one\"\n", Overrides{}, "invalid minimum compiler version"},
		{"empty compiler", "[toolchain]\ncompiler = \"\"\n", Overrides{}, "missing compiler"},
		{"malformed", "[engine\n", Overrides{}, "error parsing configuration file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfile(writeConfig(t, tt.config), tt.ov)
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Fatalf("LoadProfile error = %v, want %q", err, tt.errMsg)
			}
		})
	}
}

func TestLoadProfileMissingExplicitFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "missing.toml"), Overrides{})
	if err == nil || !strings.Contains(err.Error(), "unable to read configuration file") {
		t.Fatalf("LoadProfile error = %v", err)
	}
}
