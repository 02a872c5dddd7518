package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"rusti/common"
	"rusti/engine"
	"rusti/report"
	"rusti/toolchain"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Profile is the validated configuration of a session.
type Profile struct {
	LogLevel int
	Engine   engine.Config
}

// tomlProfile represents the configuration file as it is encoded in TOML.
type tomlProfile struct {
	Toolchain struct {
		Compiler   string `toml:"compiler"`
		Sysroot    string `toml:"sysroot"`
		MinVersion string `toml:"min-version"`
	} `toml:"toolchain"`

	Engine struct {
		Strategy            string   `toml:"strategy"`
		WorkDir             string   `toml:"work-dir"`
		SearchPaths         []string `toml:"search-paths"`
		CaptureNativeStderr *bool    `toml:"capture-native-stderr"`
	} `toml:"engine"`

	Link struct {
		LLC    string `toml:"llc"`
		Linker string `toml:"linker"`
	} `toml:"link"`

	Report struct {
		LogLevel string `toml:"log-level"`
	} `toml:"report"`
}

// Overrides are the configuration values given on the command line.  Empty
// values leave the configured value in place.
type Overrides struct {
	LogLevel    string
	Compiler    string
	Sysroot     string
	Strategy    string
	WorkDir     string
	SearchPaths []string
}

// defaultProfile returns the profile used when nothing is configured.
func defaultProfile() *tomlProfile {
	tp := &tomlProfile{}
	tp.Toolchain.Compiler = common.DefaultCompiler
	tp.Engine.Strategy = string(engine.StrategyExternal)
	tp.Engine.WorkDir = common.DefaultWorkDir
	tp.Report.LogLevel = "verbose"
	return tp
}

// LoadProfile loads the configuration file at path, applies the overrides
// and validates the result.  An empty path selects the configuration file in
// the current directory which need not exist.
func LoadProfile(path string, ov Overrides) (*Profile, error) {
	explicit := path != ""
	if !explicit {
		path = common.ConfigFileName
	}

	tp := defaultProfile()
	buff, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(buff, tp); err != nil {
			return nil, errors.Wrapf(err, "error parsing configuration file at `%s`", path)
		}

		report.ReportVerbose("loaded configuration from `%s`", path)
	case explicit || !os.IsNotExist(err):
		return nil, errors.Wrapf(err, "unable to read configuration file at `%s`", path)
	}

	tp.apply(ov)
	return tp.validate()
}

// apply overwrites the decoded values with the set overrides.
func (tp *tomlProfile) apply(ov Overrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&tp.Report.LogLevel, ov.LogLevel)
	set(&tp.Toolchain.Compiler, ov.Compiler)
	set(&tp.Toolchain.Sysroot, ov.Sysroot)
	set(&tp.Engine.Strategy, ov.Strategy)
	set(&tp.Engine.WorkDir, ov.WorkDir)

	// search paths given on the command line come first
	if len(ov.SearchPaths) > 0 {
		tp.Engine.SearchPaths = append(append([]string(nil), ov.SearchPaths...), tp.Engine.SearchPaths...)
	}
}

// validate checks the decoded values and converts them into a profile.
func (tp *tomlProfile) validate() (*Profile, error) {
	level, err := report.ParseLogLevel(tp.Report.LogLevel)
	if err != nil {
		return nil, err
	}

	strategy := engine.Strategy(strings.ToLower(tp.Engine.Strategy))
	if strategy != engine.StrategyExternal && strategy != engine.StrategyInProcess {
		return nil, errors.Errorf("invalid strategy `%s`: must be one of `%s` or `%s`",
			tp.Engine.Strategy, engine.StrategyExternal, engine.StrategyInProcess)
	}

	if tp.Toolchain.MinVersion != "" {
		if _, err := toolchain.CanonicalVersion(tp.Toolchain.MinVersion); err != nil {
			return nil, errors.Wrap(err, "invalid minimum compiler version")
		}
	}

	if tp.Toolchain.Compiler == "" {
		return nil, errors.New("missing compiler")
	}

	capture := true
	if tp.Engine.CaptureNativeStderr != nil {
		capture = *tp.Engine.CaptureNativeStderr
	}

	paths := make([]string, 0, len(tp.Engine.SearchPaths))
	for _, p := range tp.Engine.SearchPaths {
		if p != "" {
			paths = append(paths, filepath.Clean(p))
		}
	}

	return &Profile{
		LogLevel: level,
		Engine: engine.Config{
			Compiler:            tp.Toolchain.Compiler,
			Sysroot:             tp.Toolchain.Sysroot,
			MinVersion:          tp.Toolchain.MinVersion,
			Strategy:            strategy,
			WorkDir:             tp.Engine.WorkDir,
			SearchPaths:         paths,
			CaptureNativeStderr: capture,
			LLC:                 tp.Link.LLC,
			Linker:              tp.Link.Linker,
		},
	}, nil
}

// splitSearchPaths splits a list of search paths separated by the OS path
// list separator.
func splitSearchPaths(list string) []string {
	var paths []string
	for _, p := range filepath.SplitList(list) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}

	return paths
}
