package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"rusti/common"
	"rusti/engine"
	"rusti/report"

	"github.com/ComedicChimera/olive"
	"github.com/pkg/errors"
)

// Execute runs the main `rusti` application.
func Execute() {
	// set up the argument parser and all its extended commands and arguments
	cli := olive.NewCLI("rusti", "rusti is an interactive Rust evaluator", true)
	logLvlArg := cli.AddSelectorArg("loglevel", "ll", "the log level", false, report.LogLevelNames())
	logLvlArg.SetDefaultValue("verbose")
	cli.AddStringArg("config", "c", "the path to the configuration file", false)
	cli.AddStringArg("libs", "L", "additional library search paths", false)
	cli.AddStringArg("sysroot", "sr", "the sysroot of the compiler", false)
	cli.AddSelectorArg("strategy", "s", "how evaluations are compiled", false,
		[]string{string(engine.StrategyExternal), string(engine.StrategyInProcess)})
	cli.AddStringArg("workdir", "w", "the directory generated files are placed in", false)
	cli.AddStringArg("compiler", "rc", "the compiler binary", false)

	cli.AddSubcommand("repl", "start an interactive session (default)", false)

	evalCmd := cli.AddSubcommand("eval", "evaluate a source file", true)
	evalCmd.AddPrimaryArg("file", "the source file to evaluate", true)
	evalCmd.AddStringArg("entry", "e", "the function to call after loading (default `main`)", false)

	inspectCmd := cli.AddSubcommand("inspect", "list the items of a source file", true)
	inspectCmd.AddPrimaryArg("file", "the source file to inspect", true)

	cli.AddSubcommand("sysroot", "print the sysroot of the compiler", false)
	cli.AddSubcommand("version", "print the rusti version", false)

	// run the argument parser
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		report.ReportFatal(err.Error())
		return
	}

	subcmdName, subResult, ok := result.Subcommand()
	if !ok {
		subcmdName = "repl"
	}

	if subcmdName == "version" {
		report.ReportInfo("rusti version", common.RustiVersion)
		return
	}

	prof, err := LoadProfile(stringArg(result, "config"), overridesOf(result))
	if err != nil {
		report.ReportFatal(err.Error())
		return
	}
	report.InitReporter(prof.LogLevel, os.Stderr)

	eng, err := engine.New(prof.Engine)
	if err != nil {
		report.ReportFatal(err.Error())
		return
	}
	defer eng.Close()

	ctx := evalContext()

	status := 0
	switch subcmdName {
	case "repl":
		status = execRepl(eng)
	case "eval":
		status = execEvalCommand(ctx, eng, subResult)
	case "inspect":
		status = execInspectCommand(ctx, eng, subResult)
	case "sysroot":
		fmt.Println(eng.Sysroot())
	}

	if status != 0 {
		eng.Close()
		os.Exit(status)
	}
}

// evalContext returns the context evaluations run under.  A running
// evaluation is never cancelled: interrupting the process ends the session.
func evalContext() context.Context {
	return context.Background()
}

// overridesOf extracts the configuration overrides from the command line.
func overridesOf(result *olive.ArgParseResult) Overrides {
	return Overrides{
		LogLevel:    stringArg(result, "loglevel"),
		Compiler:    stringArg(result, "compiler"),
		Sysroot:     stringArg(result, "sysroot"),
		Strategy:    stringArg(result, "strategy"),
		WorkDir:     stringArg(result, "workdir"),
		SearchPaths: splitSearchPaths(stringArg(result, "libs")),
	}
}

// stringArg returns the value of a string argument or the empty string if it
// was not given.
func stringArg(result *olive.ArgParseResult, name string) string {
	if v, ok := result.Arguments[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return ""
}

// readSource reads the source file named by the primary argument.
func readSource(result *olive.ArgParseResult) (string, error) {
	path, _ := result.PrimaryArg()

	buff, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "unable to read source file at `%s`", path)
	}

	return string(buff), nil
}

// execEvalCommand executes the eval subcommand: the file is evaluated as the
// first generation and its entry function is called.
func execEvalCommand(ctx context.Context, eng *engine.Engine, result *olive.ArgParseResult) int {
	src, err := readSource(result)
	if err != nil {
		report.ReportICE("%s", err)
		return 1
	}

	entry := stringArg(result, "entry")
	if entry == "" {
		entry = "main"
	}

	if res := eng.Eval(ctx, src, entry); !res.OK() {
		return 1
	}

	return 0
}

// execInspectCommand executes the inspect subcommand.
func execInspectCommand(ctx context.Context, eng *engine.Engine, result *olive.ArgParseResult) int {
	src, err := readSource(result)
	if err != nil {
		report.ReportICE("%s", err)
		return 1
	}

	prog, res := eng.Inspect(ctx, src)
	if !res.OK() {
		return 1
	}

	fmt.Print(strings.Join(describeItems(prog), "\n"))
	if len(prog.Items) > 0 {
		fmt.Println()
	}

	return 0
}
