package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"rusti/common"
	"rusti/driver"
	"rusti/engine"
	"rusti/report"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
)

const (
	promptMain = "rusti> "
	promptCont = "...... "
)

const replHelp = `Enter Rust items to add them to the session.  Any other input is run
as the body of a function.  Items are visible to later input.

  :help            show this message
  :chain           list the accepted generations
  :inspect <code>  list the items of code without evaluating it
  :emit <path>     link the next input into a library at path
  :sysroot         print the sysroot of the compiler
  :quit            leave the session`

// Submission is one piece of REPL input prepared for evaluation.
type Submission struct {
	Body  string
	Entry string
}

// PrepareInput turns REPL input into a submission for the given generation.
// Items are submitted as they are.  Statements are wrapped into a function
// that becomes the entry point.  It returns false for empty input.
func PrepareInput(src string, gen int) (Submission, bool) {
	switch driver.Classify(src) {
	case driver.InputEmpty:
		return Submission{}, false
	case driver.InputItems:
		return Submission{Body: src}, true
	}

	name := fmt.Sprintf("%s%d", common.StatementPrefix, gen)
	return Submission{
		Body:  fmt.Sprintf("pub fn %s() {\n%s\n}\n", name, strings.TrimRight(src, " \t\n")),
		Entry: name,
	}, true
}

// describeItems renders one line per item of prog.
func describeItems(prog *driver.Program) []string {
	lines := make([]string, 0, len(prog.Items))
	for _, item := range prog.Items {
		var sb strings.Builder
		if item.Public {
			sb.WriteString("pub ")
		}
		sb.WriteString(string(item.Kind))
		if item.Name != "" {
			sb.WriteString(" ")
			sb.WriteString(item.Name)
		}

		if item.Kind == driver.ItemFunction {
			params := make([]string, len(item.Params))
			for i, p := range item.Params {
				params[i] = p.Name + ": " + p.Type
			}
			fmt.Fprintf(&sb, "(%s)", strings.Join(params, ", "))

			if item.Result != "" {
				sb.WriteString(" -> ")
				sb.WriteString(item.Result)
			}
		}

		lines = append(lines, sb.String())
	}

	return lines
}

// repl is an interactive session.
type repl struct {
	eng *engine.Engine
	ln  *liner.State
	out io.Writer
}

// execRepl runs the interactive session until the user quits.
func execRepl(eng *engine.Engine) int {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, common.HistoryFileName)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		eng.Close()
		os.Exit(130)
	}()

	r := &repl{eng: eng, ln: ln, out: os.Stdout}
	fmt.Fprintf(r.out, "rusti %s (type :help for help)\n", common.RustiVersion)

	for {
		src, ok := r.read(promptMain)
		if !ok {
			fmt.Fprintln(r.out)
			return 0
		}

		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(trimmed, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if r.command(trimmed) {
				return 0
			}
			continue
		}

		r.eval(src)
	}
}

// read reads one complete input.  Lines are read as long as the input so far
// is an incomplete program.  It returns false at the end of input.
func (r *repl) read(prompt string) (string, bool) {
	var b strings.Builder

	for {
		p := prompt
		if b.Len() > 0 {
			p = promptCont
		}

		line, err := r.ln.Prompt(p)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err == liner.ErrPromptAborted {
			// ctrl-c discards the pending input
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !driver.IsIncomplete(src) {
			return src, true
		}
	}
}

// eval evaluates one input.
func (r *repl) eval(src string) {
	sub, ok := PrepareInput(src, r.eng.Len())
	if !ok {
		return
	}

	res := r.eng.Eval(context.Background(), sub.Body, sub.Entry)
	if res.OK() && res.Record != nil {
		report.ReportVerbose("accepted as `%s`", res.Record.CrateName)
	}
}

// command executes a `:` command.  It returns true if the session should end.
func (r *repl) command(line string) bool {
	name, arg := line, ""
	if i := strings.IndexAny(line, " \t\n"); i >= 0 {
		name, arg = line[:i], strings.TrimSpace(line[i+1:])
	}

	switch strings.ToLower(name) {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Fprintln(r.out, replHelp)
	case ":chain":
		records := r.eng.Chain()
		for _, rec := range records {
			fmt.Fprintf(r.out, "%3d  %s  %s\n", rec.Generation, rec.CrateName, rec.ArtifactPath)
		}
		report.ReportDebug("chain", records)
	case ":inspect":
		if arg == "" {
			fmt.Fprintln(r.out, "usage: :inspect <code>")
			break
		}

		if prog, res := r.eng.Inspect(context.Background(), arg); res.OK() {
			for _, line := range describeItems(prog) {
				fmt.Fprintln(r.out, line)
			}
		}
	case ":emit":
		if arg == "" {
			fmt.Fprintln(r.out, "usage: :emit <path>")
			break
		}

		src, ok := r.read(promptCont)
		if !ok || strings.TrimSpace(src) == "" {
			break
		}
		if res := r.eng.Emit(context.Background(), src, arg); res.OK() {
			fmt.Fprintf(r.out, "emitted %s\n", arg)
		}
	case ":sysroot":
		fmt.Fprintln(r.out, r.eng.Sysroot())
	default:
		fmt.Fprintf(r.out, "unknown command `%s`: type :help for help\n", name)
	}

	return false
}
